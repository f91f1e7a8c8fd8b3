package runtime

import (
	"os"
	"path/filepath"
	"time"

	"github.com/medamarfilali/cubo/pkg/types"
)

// Config carries the engine configuration.
type Config struct {
	// RootDir is where bundles, images, and volumes live
	RootDir string
	// DefaultNetworkMode applies to containers that do not choose one
	DefaultNetworkMode types.NetworkMode
	Debug              bool
	// StopTimeout is the grace period between SIGTERM and SIGKILL
	StopTimeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:            DefaultRootDir(),
		DefaultNetworkMode: types.NetworkBridge,
		StopTimeout:        10 * time.Second,
	}
}

// ConfigFromEnv returns the defaults with CUBO_ROOT applied when set
// and non-empty.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if root := os.Getenv("CUBO_ROOT"); root != "" {
		cfg.RootDir = root
	}
	return cfg
}

// DefaultRootDir resolves the state directory: XDG_STATE_HOME, then
// XDG_DATA_HOME, then ~/.local/state, then /tmp, each with a cubo leaf.
func DefaultRootDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "cubo")
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "cubo")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "state", "cubo")
	}
	return "/tmp/cubo"
}
