package namespace

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/types"
)

// SysProcAttr builds the clone attributes for a container init process:
// new mount, PID, and UTS namespaces, a network namespace unless the
// container shares the host's, and, when not running as root, a user
// namespace mapping container root onto the current uid/gid. The
// setgroups deny required before writing gid_map is handled by the
// disabled setgroups mapping.
func SysProcAttr(mode types.NetworkMode) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS,
	}
	if mode != types.NetworkHost {
		attr.Cloneflags |= syscall.CLONE_NEWNET
	}

	if os.Geteuid() != 0 {
		attr.Cloneflags |= syscall.CLONE_NEWUSER
		attr.UidMappings = []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Geteuid(), Size: 1},
		}
		attr.GidMappings = []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getegid(), Size: 1},
		}
		attr.GidMappingsEnableSetgroups = false
	}

	return attr
}

// MakeMountsPrivate remounts / with recursive private propagation so
// mounts performed inside the namespace never leak back to the host.
func MakeMountsPrivate() error {
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return errdefs.Namespace("Failed to make mounts private: %v", err)
	}
	return nil
}

// BindMount bind-mounts a host path onto target, creating the mount
// point (directory or empty file, mirroring the host's type) and its
// parents first. Read-only mounts need a second remount pass.
func BindMount(host, target string, readOnly bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errdefs.Volume("Failed to create mount target parent %s: %v", filepath.Dir(target), err)
	}

	info, err := os.Stat(host)
	if err != nil {
		return errdefs.Volume("Host path does not exist: %s", host)
	}

	if info.IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return errdefs.Volume("Failed to create dir %s: %v", target, err)
		}
	} else if _, err := os.Stat(target); os.IsNotExist(err) {
		f, err := os.Create(target)
		if err != nil {
			return errdefs.Volume("Failed to create file %s: %v", target, err)
		}
		f.Close()
	}

	if err := unix.Mount(host, target, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return errdefs.Volume("Failed to bind-mount %s -> %s: %v", host, target, err)
	}

	if readOnly {
		if err := unix.Mount(host, target, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
			return errdefs.Volume("Failed to remount read-only %s: %v", target, err)
		}
	}

	return nil
}

// MountTmpfs mounts a fresh tmpfs at target, creating it if needed.
func MountTmpfs(target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errdefs.Namespace("Failed to create tmpfs dir %s: %v", target, err)
	}
	if err := unix.Mount("tmpfs", target, "tmpfs", unix.MS_NODEV|unix.MS_NOSUID|unix.MS_NOEXEC, ""); err != nil {
		return errdefs.Namespace("Failed to mount tmpfs at %s: %v", target, err)
	}
	return nil
}

// PivotRoot switches the process root to rootfs. The rootfs is bound
// onto itself first because pivot_root requires the new root to be a
// mount point.
func PivotRoot(rootfs string) error {
	if err := unix.Mount(rootfs, rootfs, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return errdefs.Namespace("Bind-mount rootfs failed: %v", err)
	}

	if err := unix.Chdir(rootfs); err != nil {
		return errdefs.Namespace("chdir(rootfs) failed: %v", err)
	}

	if err := os.MkdirAll("oldroot", 0o755); err != nil {
		return errdefs.Namespace("mkdir oldroot failed: %v", err)
	}

	if err := unix.PivotRoot(".", "oldroot"); err != nil {
		return errdefs.Namespace("pivot_root failed: %v", err)
	}

	if err := unix.Chdir("/"); err != nil {
		return errdefs.Namespace("chdir(/) failed: %v", err)
	}

	if err := unix.Unmount("/oldroot", unix.MNT_DETACH); err != nil {
		return errdefs.Namespace("umount /oldroot failed: %v", err)
	}
	os.RemoveAll("/oldroot")

	return nil
}

// MountProc mounts a fresh proc filesystem at /proc inside the current
// root. Required for ps, /proc/self, and signal semantics in the new
// PID namespace.
func MountProc() error {
	if err := os.MkdirAll("/proc", 0o755); err != nil {
		return errdefs.Namespace("mkdir /proc failed: %v", err)
	}
	if err := unix.Mount("proc", "/proc", "proc", 0, ""); err != nil {
		return errdefs.Namespace("Mount proc failed: %v", err)
	}
	return nil
}

// SetupLoopback brings up the loopback interface, trying ip then
// ifconfig. Best effort: a container without lo is degraded, not
// broken.
func SetupLoopback() error {
	if err := exec.Command("ip", "link", "set", "lo", "up").Run(); err == nil {
		return nil
	}
	exec.Command("ifconfig", "lo", "up").Run()
	return nil
}

// SetHostname sets the UTS hostname.
func SetHostname(hostname string) error {
	if err := unix.Sethostname([]byte(hostname)); err != nil {
		return errdefs.System("Failed to set hostname: %v", err)
	}
	return nil
}

// SetUser changes the process credentials per a "uid" or "uid:gid"
// specification, gid first so the uid change does not drop the
// privilege to set it.
func SetUser(spec string) error {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 1:
		uid, err := strconv.Atoi(parts[0])
		if err != nil {
			return errdefs.System("Invalid UID: %v", err)
		}
		if err := unix.Setuid(uid); err != nil {
			return errdefs.System("Failed to set UID: %v", err)
		}
	case 2:
		uid, err := strconv.Atoi(parts[0])
		if err != nil {
			return errdefs.System("Invalid UID: %v", err)
		}
		gid, err := strconv.Atoi(parts[1])
		if err != nil {
			return errdefs.System("Invalid GID: %v", err)
		}
		if err := unix.Setgid(gid); err != nil {
			return errdefs.System("Failed to set GID: %v", err)
		}
		if err := unix.Setuid(uid); err != nil {
			return errdefs.System("Failed to set UID: %v", err)
		}
	default:
		return errdefs.System("Invalid user specification")
	}
	return nil
}
