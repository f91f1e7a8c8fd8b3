package image

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStoreCreatesLayout(t *testing.T) {
	tmp := t.TempDir()
	if _, err := NewStore(tmp); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	for _, dir := range []string{"blobs", "manifests"} {
		if _, err := os.Stat(filepath.Join(tmp, dir)); err != nil {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestSafeReference(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"alpine:latest", "alpine_latest"},
		{"ubuntu:22.04", "ubuntu_22.04"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := SafeReference(tt.ref); got != tt.want {
			t.Errorf("SafeReference(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestManifestSaveAndLoad(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	manifest := &Manifest{
		Reference: "alpine:latest",
		Layers:    []string{"/path/to/layer.tar"},
		Config: Config{
			Cmd:        []string{"/bin/sh"},
			WorkingDir: "/",
		},
	}
	if err := store.SaveManifest(manifest); err != nil {
		t.Fatalf("SaveManifest() error = %v", err)
	}

	loaded, err := store.GetManifest("alpine:latest")
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if loaded.Reference != "alpine:latest" {
		t.Errorf("reference = %q", loaded.Reference)
	}
	if len(loaded.Layers) != 1 || loaded.Layers[0] != "/path/to/layer.tar" {
		t.Errorf("layers = %v", loaded.Layers)
	}
}

func TestGetManifestNotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	if _, err := store.GetManifest("missing:latest"); err == nil {
		t.Fatal("GetManifest() on missing image should error")
	}
}

func TestHasImage(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	if store.HasImage("alpine:latest") {
		t.Error("empty store should not have image")
	}

	store.SaveManifest(&Manifest{Reference: "alpine:latest"})
	if !store.HasImage("alpine:latest") {
		t.Error("image should exist after SaveManifest")
	}
}

func TestListImages(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	images, err := store.ListImages()
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if len(images) != 0 {
		t.Errorf("empty store listed %d images", len(images))
	}

	for _, name := range []string{"alpine:latest", "ubuntu:22.04", "nginx:1.25"} {
		store.SaveManifest(&Manifest{Reference: name})
	}

	images, err = store.ListImages()
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("listed %d images, want 3", len(images))
	}
	seen := map[string]bool{}
	for _, ref := range images {
		seen[ref] = true
	}
	for _, want := range []string{"alpine:latest", "ubuntu:22.04", "nginx:1.25"} {
		if !seen[want] {
			t.Errorf("missing image %q", want)
		}
	}
}

func TestGetLayersPreservesOrder(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	store.SaveManifest(&Manifest{
		Reference: "test:layers",
		Layers:    []string{"/l/layer1.tar", "/l/layer2.tar", "/l/layer3.tar"},
	})

	layers, err := store.GetLayers("test:layers")
	if err != nil {
		t.Fatalf("GetLayers() error = %v", err)
	}
	if len(layers) != 3 || layers[0] != "/l/layer1.tar" || layers[2] != "/l/layer3.tar" {
		t.Errorf("layers = %v", layers)
	}
}

func TestGetConfig(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	store.SaveManifest(&Manifest{
		Reference: "test:config",
		Config: Config{
			Cmd:          []string{"/entrypoint.sh"},
			Env:          []string{"ENV=prod", "DEBUG=false"},
			WorkingDir:   "/app",
			ExposedPorts: []string{"8080/tcp"},
		},
	})

	config, err := store.GetConfig("test:config")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if config.WorkingDir != "/app" {
		t.Errorf("working dir = %q", config.WorkingDir)
	}
	if len(config.Env) != 2 || len(config.ExposedPorts) != 1 {
		t.Errorf("env = %v, exposed = %v", config.Env, config.ExposedPorts)
	}
}

func TestImportTar(t *testing.T) {
	tmp := t.TempDir()
	store, _ := NewStore(filepath.Join(tmp, "images"))

	tarPath := filepath.Join(tmp, "image.tar")
	if err := os.WriteFile(tarPath, []byte("fake tar bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := store.ImportTar("imported:v1", tarPath); err != nil {
		t.Fatalf("ImportTar() error = %v", err)
	}

	manifest, err := store.GetManifest("imported:v1")
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if len(manifest.Layers) != 1 {
		t.Fatalf("layers = %v", manifest.Layers)
	}
	if _, err := os.Stat(manifest.Layers[0]); err != nil {
		t.Errorf("blob not copied: %v", err)
	}
	if len(manifest.Config.Cmd) != 1 || manifest.Config.Cmd[0] != "/bin/sh" {
		t.Errorf("cmd = %v", manifest.Config.Cmd)
	}
	if manifest.Config.WorkingDir != "/" {
		t.Errorf("working dir = %q", manifest.Config.WorkingDir)
	}
}

func TestImportTarMissingFile(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	err := store.ImportTar("test:import", "/nonexistent/file.tar")
	if err == nil {
		t.Fatal("ImportTar() with missing tar should error")
	}
}

func TestSaveManifestLeavesNoTmpFile(t *testing.T) {
	tmp := t.TempDir()
	store, _ := NewStore(tmp)
	store.SaveManifest(&Manifest{Reference: "a:b"})

	entries, _ := os.ReadDir(filepath.Join(tmp, "manifests"))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("tmp file left behind: %s", e.Name())
		}
	}
}
