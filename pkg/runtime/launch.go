package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/log"
	"github.com/medamarfilali/cubo/pkg/namespace"
	"github.com/medamarfilali/cubo/pkg/storage"
	"github.com/medamarfilali/cubo/pkg/types"
)

// InitCommand is the hidden CLI argument that re-enters this binary as
// a container init process.
const InitCommand = "init"

// execContext carries everything the launch path needs about one
// container start.
type execContext struct {
	container types.Container
	detach    bool
}

// runContainerProcess launches the isolated process and records its
// outcome. When started is non-nil it is closed as soon as the pid is
// recorded (or the launch failed), which is the detach contract.
func (e *Engine) runContainerProcess(ctx context.Context, execCtx execContext, started chan<- struct{}) error {
	containerID := execCtx.container.ID
	logger := log.WithComponent("runtime")
	logger.Info().Str("container_id", containerID).Msg("starting container process")

	exitCode, err := e.createIsolatedProcess(ctx, &execCtx, started)
	if err != nil {
		logger.Error().Err(err).Str("container_id", containerID).Msg("container failed")
		e.setContainerStatus(containerID, types.StatusError)
		return err
	}

	e.setContainerExitCode(containerID, exitCode)
	e.setContainerStatus(containerID, types.StatusStopped)
	logger.Info().Str("container_id", containerID).Int("exit_code", exitCode).Msg("container exited")
	return nil
}

// createIsolatedProcess re-executes this binary as the container init
// stage inside freshly cloned namespaces. Cloning with CLONE_NEWPID
// makes the init process PID 1 of the new namespace, so the recorded
// pid is the outermost host-visible process and the init's exit status
// is the container command's, traveling up unchanged.
func (e *Engine) createIsolatedProcess(ctx context.Context, execCtx *execContext, started chan<- struct{}) (int, error) {
	container := &execCtx.container
	signalStarted := func() {
		if started != nil {
			close(started)
			started = nil
		}
	}
	defer signalStarted()

	self, err := os.Executable()
	if err != nil {
		self = "/proc/self/exe"
	}

	bundle := storage.BundleDir(e.rootDir, container.ID)
	cmd := exec.CommandContext(ctx, self, InitCommand, bundle)
	cmd.SysProcAttr = namespace.SysProcAttr(container.Config.NetworkMode)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGKILL)
	}

	var logFile *os.File
	if execCtx.detach {
		logFile, err = os.OpenFile(storage.LogPath(e.rootDir, container.ID),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, errdefs.System("Failed to open container log: %v", err)
		}
		defer logFile.Close()

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return 0, errdefs.Process("Failed to pipe stdout: %v", err)
		}
		cmd.Stderr = cmd.Stdout
		go timestampLines(stdout, logFile)
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return 0, errdefs.Process("Failed to start container process: %v", err)
	}

	e.setContainerPID(container.ID, cmd.Process.Pid)
	signalStarted()

	err = cmd.Wait()
	state := cmd.ProcessState
	if state == nil {
		return 0, errdefs.Process("Failed to wait for container process: %v", err)
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		switch {
		case ws.Exited():
			return ws.ExitStatus(), nil
		case ws.Signaled():
			log.WithComponent("runtime").Warn().
				Str("container_id", container.ID).
				Str("signal", ws.Signal().String()).
				Msg("container killed by signal")
			return 128 + int(ws.Signal()), nil
		}
	}
	if err != nil {
		return 0, errdefs.Process("Failed to wait for container process: %v", err)
	}
	return 0, nil
}

// timestampLines copies lines from r to w, prefixing each with an
// RFC3339Nano timestamp, the format the logs command knows to strip.
func timestampLines(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintf(w, "%s %s\n", time.Now().UTC().Format(time.RFC3339Nano), scanner.Text())
	}
}
