package image

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/storage"
)

// Manifest records an image's ordered layers and default process
// configuration. Layers are consumed in list order when assembling a
// rootfs: earlier layers are base, later layers overlay.
type Manifest struct {
	// Image reference, e.g. "ubuntu:latest"
	Reference string `json:"reference"`
	// Absolute layer blob paths, base first
	Layers []string `json:"layers"`
	Config Config   `json:"config"`
}

// Config is the image's default process environment.
type Config struct {
	Cmd          []string `json:"cmd,omitempty"`
	Env          []string `json:"env,omitempty"`
	WorkingDir   string   `json:"working_dir,omitempty"`
	ExposedPorts []string `json:"exposed_ports,omitempty"`
}

// DefaultPath is the PATH baked into manifests synthesized for imported
// tars.
const DefaultPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// SafeReference converts an image reference into a filesystem-safe name.
func SafeReference(ref string) string {
	return strings.ReplaceAll(ref, ":", "_")
}

// Store keeps image manifests and layer blobs on disk:
// <root>/manifests/<safe-ref>.json and <root>/blobs/*.tar. References
// are the lookup key; blobs are not content-addressed or deduplicated.
type Store struct {
	root string
}

// NewStore creates the store layout under root.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, "blobs"), filepath.Join(root, "manifests")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errdefs.System("Failed to create image store directory %s: %v", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// BlobsDir returns the directory layer blobs live in.
func (s *Store) BlobsDir() string {
	return filepath.Join(s.root, "blobs")
}

func (s *Store) manifestPath(ref string) string {
	return filepath.Join(s.root, "manifests", SafeReference(ref)+".json")
}

// ImportTar copies a tar file into the blob store and synthesizes a
// single-layer manifest with a minimal shell configuration.
func (s *Store) ImportTar(ref, tarPath string) error {
	if _, err := os.Stat(tarPath); err != nil {
		return errdefs.System("Image tar file does not exist: %s", tarPath)
	}

	blobPath := filepath.Join(s.BlobsDir(), SafeReference(ref)+".tar")
	if err := copyFile(tarPath, blobPath); err != nil {
		return errdefs.System("Failed to copy image tar: %v", err)
	}

	manifest := &Manifest{
		Reference: ref,
		Layers:    []string{blobPath},
		Config: Config{
			Cmd:        []string{"/bin/sh"},
			Env:        []string{DefaultPath},
			WorkingDir: "/",
		},
	}
	return s.SaveManifest(manifest)
}

// GetManifest loads the manifest stored for ref.
func (s *Store) GetManifest(ref string) (*Manifest, error) {
	path := s.manifestPath(ref)
	if _, err := os.Stat(path); err != nil {
		return nil, errdefs.BlueprintNotFound(ref)
	}

	var manifest Manifest
	if err := storage.ReadJSON(path, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// HasImage reports whether a manifest exists for ref.
func (s *Store) HasImage(ref string) bool {
	_, err := os.Stat(s.manifestPath(ref))
	return err == nil
}

// ListImages returns the reference of every stored manifest.
func (s *Store) ListImages() ([]string, error) {
	manifestsDir := filepath.Join(s.root, "manifests")
	entries, err := os.ReadDir(manifestsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errdefs.System("Failed to read manifests dir: %v", err)
	}

	var images []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var manifest Manifest
		if err := storage.ReadJSON(filepath.Join(manifestsDir, entry.Name()), &manifest); err != nil {
			continue
		}
		images = append(images, manifest.Reference)
	}
	return images, nil
}

// GetLayers returns the ordered layer paths of an image.
func (s *Store) GetLayers(ref string) ([]string, error) {
	manifest, err := s.GetManifest(ref)
	if err != nil {
		return nil, err
	}
	return manifest.Layers, nil
}

// GetConfig returns the default process configuration of an image.
func (s *Store) GetConfig(ref string) (*Config, error) {
	manifest, err := s.GetManifest(ref)
	if err != nil {
		return nil, err
	}
	return &manifest.Config, nil
}

// SaveManifest writes the manifest atomically. The write is the last
// step of builds and pulls, so a new image appears to readers all at
// once.
func (s *Store) SaveManifest(manifest *Manifest) error {
	return storage.AtomicWriteJSON(s.manifestPath(manifest.Reference), manifest)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
