package volume

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/types"
)

// LocalDriver manages named volumes as plain directories under
// <root>/volumes/<name>. The directory is allocated on first use and
// bind-mounted into containers that reference the volume by name.
type LocalDriver struct {
	basePath string
}

// NewLocalDriver creates the volumes directory under the runtime root.
func NewLocalDriver(rootDir string) (*LocalDriver, error) {
	basePath := filepath.Join(rootDir, "volumes")
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errdefs.Volume("Failed to create volumes directory: %v", err)
	}
	return &LocalDriver{basePath: basePath}, nil
}

// Path returns the host directory backing a named volume.
func (d *LocalDriver) Path(name string) string {
	return filepath.Join(d.basePath, name)
}

// Ensure allocates the backing directory for a named volume and returns
// its host path.
func (d *LocalDriver) Ensure(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return "", errdefs.Volume("Invalid volume name: %q", name)
	}
	path := d.Path(name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", errdefs.Volume("Failed to create volume directory: %v", err)
	}
	return path, nil
}

// Remove deletes a named volume and its contents. Removing a volume
// that does not exist is a no-op.
func (d *LocalDriver) Remove(name string) error {
	path := d.Path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return errdefs.Volume("Failed to delete volume directory: %v", err)
	}
	return nil
}

// List returns the names of all allocated volumes.
func (d *LocalDriver) List() ([]string, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, errdefs.Volume("Failed to read volumes directory: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ParseSpec parses a -v volume argument of the form
// HOST:CONTAINER[:ro]. Specs without a colon are rejected.
func ParseSpec(spec string) (types.VolumeMount, bool) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return types.Bind(parts[0], parts[1], false), true
	case 3:
		return types.Bind(parts[0], parts[1], parts[2] == "ro"), true
	default:
		return types.VolumeMount{}, false
	}
}
