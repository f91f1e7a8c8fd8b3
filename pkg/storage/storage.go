package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/types"
)

const (
	// ociVersion is the OCI runtime-spec version recorded in state.json
	ociVersion = "1.0.2"

	configFile = "config.json"
	stateFile  = "state.json"
)

// Additional container states beyond the ones runtime-spec defines.
const (
	statePaused  specs.ContainerState = "paused"
	stateUnknown specs.ContainerState = "unknown"
)

// NewOCIState builds the state.json summary for external inspection.
// Annotations always carry the blueprint, optionally the name, and
// error=true when the container is in the Error state.
func NewOCIState(c *types.Container, bundle string) specs.State {
	status, errorFlag := ociStatus(c.Status)

	annotations := map[string]string{
		"blueprint": c.Blueprint,
	}
	if c.Name != "" {
		annotations["name"] = c.Name
	}
	if errorFlag {
		annotations["error"] = "true"
	}

	state := specs.State{
		Version:     ociVersion,
		ID:          c.ID,
		Status:      status,
		Bundle:      bundle,
		Annotations: annotations,
	}
	if c.PID != nil {
		state.Pid = *c.PID
	}
	return state
}

func ociStatus(status types.Status) (specs.ContainerState, bool) {
	switch status {
	case types.StatusCreated:
		return specs.StateCreated, false
	case types.StatusRunning:
		return specs.StateRunning, false
	case types.StatusStopped:
		return specs.StateStopped, false
	case types.StatusPaused:
		return statePaused, false
	case types.StatusError:
		return stateUnknown, true
	default:
		return stateUnknown, false
	}
}

func statusFromOCI(state specs.ContainerState) (types.Status, bool) {
	switch state {
	case specs.StateCreated:
		return types.StatusCreated, true
	case specs.StateRunning:
		return types.StatusRunning, true
	case specs.StateStopped:
		return types.StatusStopped, true
	case statePaused:
		return types.StatusPaused, true
	default:
		return "", false
	}
}

// SaveConfig persists the full container as config.json in its bundle.
func SaveConfig(rootDir string, c *types.Container) error {
	bundle := filepath.Join(rootDir, c.ID)
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		return errdefs.System("Failed to create bundle dir: %v", err)
	}
	return AtomicWriteJSON(filepath.Join(bundle, configFile), c)
}

// SaveState persists the OCI state summary as state.json in the bundle.
func SaveState(rootDir string, c *types.Container) error {
	bundle := filepath.Join(rootDir, c.ID)
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		return errdefs.System("Failed to create bundle dir: %v", err)
	}
	state := NewOCIState(c, bundle)
	return AtomicWriteJSON(filepath.Join(bundle, stateFile), state)
}

// LoadAll scans the root directory for bundles and reconstructs the
// container map. The state.json status and pid, when present and
// recognized, overlay the config.json values.
func LoadAll(rootDir string) (map[string]*types.Container, error) {
	loaded := map[string]*types.Container{}

	entries, err := os.ReadDir(rootDir)
	if errors.Is(err, os.ErrNotExist) {
		return loaded, nil
	}
	if err != nil {
		return nil, errdefs.System("Failed to read root dir: %v", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		bundle := filepath.Join(rootDir, entry.Name())
		configPath := filepath.Join(bundle, configFile)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		var container types.Container
		if err := ReadJSON(configPath, &container); err != nil {
			return nil, err
		}

		var state specs.State
		if err := ReadJSON(filepath.Join(bundle, stateFile), &state); err == nil {
			if status, ok := statusFromOCI(state.Status); ok {
				container.UpdateStatus(status)
			}
			if state.Pid != 0 {
				container.SetPID(state.Pid)
			} else {
				container.PID = nil
			}
		}

		loaded[container.ID] = &container
	}

	return loaded, nil
}

// ReadJSON reads and unmarshals a JSON file into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errdefs.System("Failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errdefs.System("Failed to parse JSON from %s: %v", path, err)
	}
	return nil
}

// AtomicWriteJSON serializes v as pretty JSON and writes it to path via
// a temp file, fsync, and rename, so readers observe either the old or
// the new complete document.
func AtomicWriteJSON(path string, v any) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errdefs.System("Failed to create parent dir: %v", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errdefs.System("Failed to serialize JSON: %v", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errdefs.System("Failed to create tmp file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errdefs.System("Failed to write tmp file: %v", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errdefs.System("Failed to sync tmp file: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errdefs.System("Failed to close tmp file: %v", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errdefs.System("Failed to rename tmp file %s -> %s: %v", tmpPath, path, err)
	}
	return nil
}

// PidIsAlive probes a PID with signal 0. EPERM means the process exists
// but we lack permission to signal it; ESRCH means it is gone. The probe
// never perturbs the target.
func PidIsAlive(pid *int) bool {
	if pid == nil {
		return false
	}
	err := unix.Kill(*pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.EPERM):
		return true
	default:
		return false
	}
}

// BundleDir returns the on-disk bundle directory of a container.
func BundleDir(rootDir, containerID string) string {
	return filepath.Join(rootDir, containerID)
}

// LogPath returns the container's log file path inside its bundle.
func LogPath(rootDir, containerID string) string {
	return filepath.Join(rootDir, containerID, "container.log")
}
