package runtime

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/log"
	"github.com/medamarfilali/cubo/pkg/rootfs"
	"github.com/medamarfilali/cubo/pkg/storage"
	"github.com/medamarfilali/cubo/pkg/types"
)

// Engine is the container runtime: an in-memory registry of containers
// backed by on-disk bundles. All Engine handles created from the same
// New call share state; operations on a single container are serialized
// by the registry mutex, which is never held across disk or process
// I/O.
type Engine struct {
	mu         *sync.Mutex
	containers map[string]*types.Container
	rootDir    string
	config     Config
}

// New constructs an engine on the configured root directory, loads
// every persisted bundle, and reconciles containers recorded as Running
// whose process no longer exists to Stopped.
func New(config Config) (*Engine, error) {
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, errdefs.System("Failed to create root directory: %v", err)
	}

	loaded, err := storage.LoadAll(config.RootDir)
	if err != nil {
		return nil, err
	}

	logger := log.WithComponent("runtime")
	for _, container := range loaded {
		if container.Status == types.StatusRunning && !storage.PidIsAlive(container.PID) {
			logger.Warn().Str("container_id", container.ID).Msg("running container has no live process, marking stopped")
			container.UpdateStatus(types.StatusStopped)
			if err := storage.SaveState(config.RootDir, container); err != nil {
				logger.Error().Err(err).Str("container_id", container.ID).Msg("failed to persist reconciled state")
			}
		}
	}

	return &Engine{
		mu:         &sync.Mutex{},
		containers: loaded,
		rootDir:    config.RootDir,
		config:     config,
	}, nil
}

// RootDir returns the engine's root directory.
func (e *Engine) RootDir() string {
	return e.rootDir
}

// StopTimeout returns the configured SIGTERM grace period.
func (e *Engine) StopTimeout() time.Duration {
	return e.config.StopTimeout
}

// CreateContainer materializes the bundle: directory, rootfs extracted
// from the blueprint, config.json, and state.json. It returns the
// container id.
func (e *Engine) CreateContainer(ctx context.Context, container *types.Container) (string, error) {
	containerID := container.ID

	containerDir := filepath.Join(e.rootDir, containerID)
	if err := os.MkdirAll(containerDir, 0o755); err != nil {
		return "", errdefs.System("Failed to create container directory: %v", err)
	}

	rootfsDir := filepath.Join(containerDir, "rootfs")
	if err := os.MkdirAll(rootfsDir, 0o755); err != nil {
		return "", errdefs.System("Failed to create rootfs directory: %v", err)
	}

	if err := e.setupRootfs(container, rootfsDir); err != nil {
		return "", err
	}

	if err := storage.SaveConfig(e.rootDir, container); err != nil {
		return "", err
	}
	if err := storage.SaveState(e.rootDir, container); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.containers[containerID] = container
	e.mu.Unlock()

	log.WithComponent("runtime").Info().Str("container_id", containerID).Msg("created container")
	return containerID, nil
}

// StartContainer launches the container's isolated process. With
// detach the call returns once the pid is recorded; otherwise it blocks
// until the container exits.
func (e *Engine) StartContainer(ctx context.Context, containerID string, detach bool) error {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	if !ok {
		e.mu.Unlock()
		return errdefs.ContainerNotFound(containerID)
	}
	if container.IsRunning() {
		e.mu.Unlock()
		return errdefs.ContainerAlreadyRunning(containerID)
	}

	container.UpdateStatus(types.StatusRunning)
	snapshot := *container
	e.mu.Unlock()

	if err := storage.SaveState(e.rootDir, &snapshot); err != nil {
		return err
	}

	execCtx := execContext{
		container: snapshot,
		detach:    detach,
	}

	if detach {
		started := make(chan struct{})
		go func() {
			if err := e.runContainerProcess(context.Background(), execCtx, started); err != nil {
				log.WithComponent("runtime").Error().Err(err).Str("container_id", containerID).Msg("container failed")
				e.setContainerStatus(containerID, types.StatusError)
			}
		}()
		<-started
		return nil
	}

	return e.runContainerProcess(ctx, execCtx, nil)
}

// StopContainer sends SIGTERM, waits up to timeout for the process to
// die, then SIGKILLs it. A zero timeout means the configured default
// (10s); a negative timeout skips the grace period and kills
// immediately. Stopping a container that is not running is a no-op.
func (e *Engine) StopContainer(ctx context.Context, containerID string, timeout time.Duration) error {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	if !ok {
		e.mu.Unlock()
		return errdefs.ContainerNotRunning(containerID)
	}
	if !container.IsRunning() {
		e.mu.Unlock()
		return nil
	}
	pid := container.PID
	e.mu.Unlock()

	logger := log.WithComponent("runtime")
	if pid != nil {
		if timeout == 0 {
			timeout = e.config.StopTimeout
		}

		if timeout > 0 {
			if err := unix.Kill(*pid, unix.SIGTERM); err != nil {
				logger.Warn().Err(err).Str("container_id", containerID).Msg("failed to send SIGTERM")
			}

			deadline := time.Now().Add(timeout)
			for time.Now().Before(deadline) && storage.PidIsAlive(pid) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(100 * time.Millisecond):
				}
			}
		}

		if storage.PidIsAlive(pid) {
			if err := unix.Kill(*pid, unix.SIGKILL); err != nil {
				logger.Warn().Err(err).Str("container_id", containerID).Msg("failed to send SIGKILL")
			}
		}
	}

	e.mu.Lock()
	container, ok = e.containers[containerID]
	var snapshot types.Container
	if ok {
		container.UpdateStatus(types.StatusStopped)
		snapshot = *container
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	logger.Info().Str("container_id", containerID).Msg("stopped container")
	return storage.SaveState(e.rootDir, &snapshot)
}

// RemoveContainer deletes the container's bundle and forgets it. A
// running container is refused unless force is set, in which case it is
// stopped first with a short grace period.
func (e *Engine) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	if !ok {
		e.mu.Unlock()
		return errdefs.ContainerNotRunning(containerID)
	}
	running := container.IsRunning()
	e.mu.Unlock()

	if running && !force {
		return errdefs.System("Container is running. Use --force to remove")
	}

	if running {
		if err := e.StopContainer(ctx, containerID, 5*time.Second); err != nil {
			return err
		}
	}

	containerDir := filepath.Join(e.rootDir, containerID)
	if err := os.RemoveAll(containerDir); err != nil {
		return errdefs.System("Failed to remove container directory: %v", err)
	}

	e.mu.Lock()
	delete(e.containers, containerID)
	e.mu.Unlock()

	log.WithComponent("runtime").Info().Str("container_id", containerID).Msg("removed container")
	return nil
}

// ListContainers returns a snapshot of containers: running ones, or all
// of them when all is set.
func (e *Engine) ListContainers(all bool) []*types.Container {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result []*types.Container
	for _, container := range e.containers {
		if all || container.IsRunning() {
			snapshot := *container
			result = append(result, &snapshot)
		}
	}
	return result
}

// GetContainer returns a snapshot of a container by exact id.
func (e *Engine) GetContainer(containerID string) (*types.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	container, ok := e.containers[containerID]
	if !ok {
		return nil, errdefs.ContainerNotRunning(containerID)
	}
	snapshot := *container
	return &snapshot, nil
}

// ResolveContainer maps an identifier to a container id: exact id
// match, then unique id prefix match, then exact name match.
func (e *Engine) ResolveContainer(identifier string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.containers[identifier]; ok {
		return identifier, nil
	}

	prefixMatch := ""
	prefixMatches := 0
	for id := range e.containers {
		if len(identifier) > 0 && len(identifier) < len(id) && id[:len(identifier)] == identifier {
			prefixMatch = id
			prefixMatches++
		}
	}
	if prefixMatches == 1 {
		return prefixMatch, nil
	}

	for id, container := range e.containers {
		if container.Name != "" && container.Name == identifier {
			return id, nil
		}
	}

	return "", errdefs.ContainerNotFound(identifier)
}

// setupRootfs extracts the blueprint into the bundle rootfs, falling
// back to a minimal rootfs when the image is unavailable.
func (e *Engine) setupRootfs(container *types.Container, rootfsPath string) error {
	logger := log.WithComponent("runtime")

	imageStore, err := image.NewStore(filepath.Join(e.rootDir, "images"))
	if err != nil {
		return err
	}
	builder := rootfs.NewBuilder(imageStore)

	err = builder.BuildFromImage(container.Blueprint, rootfsPath)
	switch {
	case err == nil:
		return nil
	case errdefs.IsBlueprintNotFound(err):
		logger.Warn().
			Str("image", container.Blueprint).
			Msg("image not found, creating minimal rootfs; import it with the image store or pull it")
		return builder.BuildMinimal(rootfsPath)
	default:
		logger.Warn().Err(err).Msg("failed to build rootfs from image, falling back to minimal rootfs")
		return builder.BuildMinimal(rootfsPath)
	}
}

func (e *Engine) setContainerStatus(containerID string, status types.Status) {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	var snapshot types.Container
	if ok {
		container.UpdateStatus(status)
		snapshot = *container
	}
	e.mu.Unlock()
	if ok {
		if err := storage.SaveState(e.rootDir, &snapshot); err != nil {
			log.WithComponent("runtime").Error().Err(err).Msg("failed to persist state")
		}
	}
}

func (e *Engine) setContainerPID(containerID string, pid int) {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	var snapshot types.Container
	if ok {
		container.SetPID(pid)
		snapshot = *container
	}
	e.mu.Unlock()
	if ok {
		if err := storage.SaveState(e.rootDir, &snapshot); err != nil {
			log.WithComponent("runtime").Error().Err(err).Msg("failed to persist state")
		}
	}
}

func (e *Engine) setContainerExitCode(containerID string, exitCode int) {
	e.mu.Lock()
	container, ok := e.containers[containerID]
	var snapshot types.Container
	if ok {
		container.SetExitCode(exitCode)
		snapshot = *container
	}
	e.mu.Unlock()
	if ok {
		if err := storage.SaveState(e.rootDir, &snapshot); err != nil {
			log.WithComponent("runtime").Error().Err(err).Msg("failed to persist state")
		}
	}
}
