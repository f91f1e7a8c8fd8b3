package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvVar(t *testing.T) {
	tests := []struct {
		input string
		key   string
		value string
		ok    bool
	}{
		{"HOME=/root", "HOME", "/root", true},
		{"PATH=/usr/bin:/bin", "PATH", "/usr/bin:/bin", true},
		{"EMPTY=", "EMPTY", "", true},
		{"INVALID", "", "", false},
		{"=value", "", "", false},
	}

	for _, tt := range tests {
		key, value, ok := parseEnvVar(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if ok {
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.value, value)
		}
	}
}

func TestDetectBuildFile(t *testing.T) {
	tmp := t.TempDir()

	// Nothing present
	_, _, err := detectBuildFile(tmp, "")
	require.Error(t, err)

	// Text file only
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "Cubofile"), []byte("BASE a:b"), 0o644))
	path, isTOML, err := detectBuildFile(tmp, "")
	require.NoError(t, err)
	assert.False(t, isTOML)
	assert.Equal(t, filepath.Join(tmp, "Cubofile"), path)

	// TOML wins when both exist
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "Cubofile.toml"), []byte(""), 0o644))
	path, isTOML, err = detectBuildFile(tmp, "")
	require.NoError(t, err)
	assert.True(t, isTOML)
	assert.Equal(t, filepath.Join(tmp, "Cubofile.toml"), path)

	// Explicit file classified by extension
	path, isTOML, err = detectBuildFile(tmp, "custom.toml")
	require.NoError(t, err)
	assert.True(t, isTOML)
	assert.Equal(t, filepath.Join(tmp, "custom.toml"), path)

	_, isTOML, err = detectBuildFile(tmp, "Cubofile.dev")
	require.NoError(t, err)
	assert.False(t, isTOML)
}

func TestResolveImageTag(t *testing.T) {
	assert.Equal(t, "theimage:v1.0", resolveImageTag("/some/path", "theimage:v1.0"))
	assert.Equal(t, "myapp:latest", resolveImageTag("/builds/myapp", ""))
	assert.Equal(t, "myapp:latest", resolveImageTag("myapp", ""))
	assert.Equal(t, "unnamed:latest", resolveImageTag(".", ""))
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "echo hello", formatCommand([]string{"echo", "hello"}))

	long := formatCommand([]string{"/usr/local/bin/very-long-binary-name", "--with", "--flags"})
	assert.Len(t, long, 30)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestFormatCreated(t *testing.T) {
	assert.Equal(t, "Just now", formatCreated(30*time.Second))
	assert.Equal(t, "5 minutes ago", formatCreated(5*time.Minute))
	assert.Equal(t, "3 hours ago", formatCreated(3*time.Hour))
	assert.Equal(t, "2 days ago", formatCreated(49*time.Hour))
}

func TestStripTimestamp(t *testing.T) {
	msg, ok := stripTimestamp("2026-08-01T10:30:00.123456789Z hello from the container")
	require.True(t, ok)
	assert.Equal(t, "hello from the container", msg)

	_, ok = stripTimestamp("plain line without timestamp")
	assert.False(t, ok)

	_, ok = stripTimestamp("short one")
	assert.False(t, ok)
}

func TestPrintLogsTail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "container.log")
	content := "2026-08-01T10:00:00.000000000Z one\n" +
		"2026-08-01T10:00:01.000000000Z two\n" +
		"2026-08-01T10:00:02.000000000Z three\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	var out bytes.Buffer
	require.NoError(t, printLogs(&out, logPath, 2, false))
	assert.Equal(t, "two\nthree\n", out.String())

	out.Reset()
	require.NoError(t, printLogs(&out, logPath, 0, true))
	assert.Contains(t, out.String(), "2026-08-01T10:00:00.000000000Z one")
}
