package builder

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

func TestNewBuilder(t *testing.T) {
	tmp := t.TempDir()
	store, err := image.NewStore(filepath.Join(tmp, "images"))
	if err != nil {
		t.Fatal(err)
	}

	builder := New(store, tmp)
	if builder.buildContext != tmp {
		t.Errorf("buildContext = %q, want %q", builder.buildContext, tmp)
	}
}

func TestCopyDirRecursive(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")

	if err := os.MkdirAll(filepath.Join(src, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "file1.txt"), []byte("content1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "subdir", "file2.txt"), []byte("content2"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyDirRecursive(src, dest); err != nil {
		t.Fatalf("copyDirRecursive() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "file1.txt"))
	if err != nil || string(data) != "content1" {
		t.Errorf("file1.txt = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "subdir", "file2.txt")); err != nil {
		t.Errorf("nested file not copied: %v", err)
	}
}

func TestExecuteCopyFile(t *testing.T) {
	tmp := t.TempDir()
	store, _ := image.NewStore(filepath.Join(tmp, "images"))

	context := filepath.Join(tmp, "context")
	if err := os.MkdirAll(context, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(context, "app.conf"), []byte("config"), 0o644); err != nil {
		t.Fatal(err)
	}

	rootfsDir := filepath.Join(tmp, "rootfs")
	if err := os.MkdirAll(rootfsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	builder := New(store, context)
	if err := builder.executeCopy(rootfsDir, "app.conf", "/etc/app/app.conf"); err != nil {
		t.Fatalf("executeCopy() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(rootfsDir, "etc/app/app.conf"))
	if err != nil || string(data) != "config" {
		t.Errorf("copied file = %q, %v", data, err)
	}
}

func TestExecuteCopyRelativeDest(t *testing.T) {
	tmp := t.TempDir()
	store, _ := image.NewStore(filepath.Join(tmp, "images"))

	context := filepath.Join(tmp, "context")
	os.MkdirAll(context, 0o755)
	os.WriteFile(filepath.Join(context, "f"), []byte("x"), 0o644)

	rootfsDir := filepath.Join(tmp, "rootfs")
	os.MkdirAll(rootfsDir, 0o755)

	builder := New(store, context)
	if err := builder.executeCopy(rootfsDir, "f", "opt/f"); err != nil {
		t.Fatalf("executeCopy() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(rootfsDir, "opt/f")); err != nil {
		t.Errorf("relative dest not resolved under rootfs: %v", err)
	}
}

func TestExecuteCopyMissingSource(t *testing.T) {
	tmp := t.TempDir()
	store, _ := image.NewStore(filepath.Join(tmp, "images"))
	builder := New(store, tmp)

	err := builder.executeCopy(filepath.Join(tmp, "rootfs"), "missing-file", "/dest")
	if err == nil {
		t.Fatal("executeCopy() with missing source should error")
	}
}

func TestExecuteRunNoShell(t *testing.T) {
	tmp := t.TempDir()
	store, _ := image.NewStore(filepath.Join(tmp, "images"))
	builder := New(store, tmp)

	rootfsDir := filepath.Join(tmp, "rootfs")
	os.MkdirAll(filepath.Join(rootfsDir, "etc"), 0o755)

	err := builder.executeRun(rootfsDir, "echo hello")
	if err == nil {
		t.Fatal("executeRun() without a shell in the rootfs should error")
	}
}
