package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/medamarfilali/cubo/pkg/types"
)

func TestEnsureCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	driver, err := NewLocalDriver(root)
	if err != nil {
		t.Fatalf("NewLocalDriver() error = %v", err)
	}

	path, err := driver.Ensure("data")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if path != filepath.Join(root, "volumes", "data") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("volume directory not created: %v", err)
	}
}

func TestEnsureIdempotent(t *testing.T) {
	driver, _ := NewLocalDriver(t.TempDir())

	first, err := driver.Ensure("cache")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(first, "marker"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := driver.Ensure("cache")
	if err != nil {
		t.Fatalf("Ensure() second call error = %v", err)
	}
	if second != first {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if _, err := os.Stat(filepath.Join(second, "marker")); err != nil {
		t.Error("existing volume content was lost")
	}
}

func TestEnsureRejectsInvalidNames(t *testing.T) {
	driver, _ := NewLocalDriver(t.TempDir())

	if _, err := driver.Ensure(""); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := driver.Ensure("a/b"); err == nil {
		t.Error("name with separator should be rejected")
	}
}

func TestRemove(t *testing.T) {
	driver, _ := NewLocalDriver(t.TempDir())

	path, _ := driver.Ensure("doomed")
	if err := driver.Remove("doomed"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("volume directory still exists after remove")
	}

	// Removing again is a no-op.
	if err := driver.Remove("doomed"); err != nil {
		t.Errorf("Remove() of missing volume error = %v", err)
	}
}

func TestList(t *testing.T) {
	driver, _ := NewLocalDriver(t.TempDir())
	driver.Ensure("alpha")
	driver.Ensure("beta")

	names, err := driver.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("listed %d volumes, want 2", len(names))
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec string
		want types.VolumeMount
		ok   bool
	}{
		{"/host:/container", types.Bind("/host", "/container", false), true},
		{"/host:/container:ro", types.Bind("/host", "/container", true), true},
		{"/host:/container:rw", types.Bind("/host", "/container", false), true},
		{"invalid", types.VolumeMount{}, false},
		{"a:b:c:d", types.VolumeMount{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseSpec(tt.spec)
		if ok != tt.ok {
			t.Errorf("ParseSpec(%q) ok = %v, want %v", tt.spec, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseSpec(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}
}
