package runtime

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/namespace"
	"github.com/medamarfilali/cubo/pkg/storage"
	"github.com/medamarfilali/cubo/pkg/types"
	"github.com/medamarfilali/cubo/pkg/volume"
)

// InitContainer is the container init stage. It runs as PID 1 inside
// the namespaces the engine cloned for it: it seals mount propagation,
// applies volume mounts, pivots into the bundle rootfs, finishes
// host-visible setup (hostname, proc, loopback, workdir, env, user),
// then spawns the container command under a zombie reaper and exits
// with the command's exit status. Any failure before the command runs
// makes the process exit non-zero immediately.
func InitContainer(bundleDir string) error {
	var container types.Container
	if err := storage.ReadJSON(filepath.Join(bundleDir, "config.json"), &container); err != nil {
		return err
	}

	rootfsPath := filepath.Join(bundleDir, "rootfs")
	rootDir := filepath.Dir(bundleDir)

	if err := namespace.MakeMountsPrivate(); err != nil {
		return err
	}

	if err := applyVolumeMounts(rootDir, rootfsPath, container.Config.VolumeMounts); err != nil {
		return err
	}

	if err := namespace.PivotRoot(rootfsPath); err != nil {
		return err
	}

	if container.Config.Hostname != "" {
		if err := namespace.SetHostname(container.Config.Hostname); err != nil {
			return err
		}
	}

	if err := namespace.MountProc(); err != nil {
		return err
	}

	if container.Config.NetworkMode != types.NetworkHost {
		namespace.SetupLoopback()
	}

	if container.Config.WorkingDir != "" {
		if err := unix.Chdir(container.Config.WorkingDir); err != nil {
			return errdefs.System("Failed to change directory: %v", err)
		}
	}

	for key, value := range container.Config.EnvVars {
		os.Setenv(key, value)
	}

	if container.Config.User != "" {
		if err := namespace.SetUser(container.Config.User); err != nil {
			return err
		}
	}

	return reapCommand(container.Command)
}

// applyVolumeMounts performs every mount before the pivot, resolving
// container paths under the bundle rootfs. Named volumes are allocated
// under <root>/volumes and bind-mounted.
func applyVolumeMounts(rootDir, rootfsPath string, mounts []types.VolumeMount) error {
	var volumes *volume.LocalDriver

	for _, mount := range mounts {
		target := filepath.Join(rootfsPath, strings.TrimPrefix(mount.ContainerPath, "/"))

		switch mount.MountType {
		case types.MountBind:
			if err := namespace.BindMount(mount.HostPath, target, mount.ReadOnly); err != nil {
				return err
			}
		case types.MountTmpfs:
			if err := namespace.MountTmpfs(target); err != nil {
				return err
			}
		case types.MountVolume:
			if volumes == nil {
				driver, err := volume.NewLocalDriver(rootDir)
				if err != nil {
					return err
				}
				volumes = driver
			}
			hostPath, err := volumes.Ensure(mount.HostPath)
			if err != nil {
				return err
			}
			if err := namespace.BindMount(hostPath, target, mount.ReadOnly); err != nil {
				return err
			}
		}
	}
	return nil
}

// reapCommand starts the container command as a child of this PID 1
// and reaps every descendant, exiting with the command's status once
// it finishes.
func reapCommand(command []string) error {
	shellCommand := strings.Join(command, " ")
	cmd := exec.Command("/bin/sh", "-c", shellCommand)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errdefs.Process("Failed to execute command: %v", err)
	}
	childPid := cmd.Process.Pid

	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ECHILD {
			// Everything is reaped and the command never surfaced an
			// exit status: nothing left to wait for.
			os.Exit(0)
		}
		if err != nil {
			return errdefs.Process("waitpid in pid1 failed: %v", err)
		}

		if pid == childPid {
			switch {
			case ws.Exited():
				os.Exit(ws.ExitStatus())
			case ws.Signaled():
				os.Exit(128 + int(ws.Signal()))
			}
		}
	}
}
