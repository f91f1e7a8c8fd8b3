package rootfs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/log"
)

// essentialDirs must exist in every assembled rootfs. They are created
// only when a layer did not already provide them.
var essentialDirs = []string{
	"dev", "proc", "sys", "tmp",
	"etc", "var", "var/log", "var/tmp",
}

// minimalDirs is the skeleton of the fallback rootfs used when no image
// is available.
var minimalDirs = []string{
	"bin", "etc", "lib", "lib64", "usr", "var", "tmp",
	"dev", "proc", "sys", "mnt", "opt", "root", "home",
	"usr/bin", "usr/lib", "usr/local", "usr/share",
	"var/log", "var/tmp", "var/run",
}

// essentialBinaries are best-effort copied from the host into a minimal
// rootfs. Missing ones are logged, not fatal.
var essentialBinaries = []string{
	"/bin/sh",
	"/bin/bash",
	"/bin/ls",
	"/bin/cat",
	"/bin/echo",
	"/bin/mkdir",
	"/bin/rm",
}

// Builder assembles container root filesystems from stored image layers.
type Builder struct {
	images *image.Store
}

// NewBuilder returns a Builder backed by the given image store.
func NewBuilder(images *image.Store) *Builder {
	return &Builder{images: images}
}

// BuildFromImage extracts all layers of the referenced image, in order,
// into the target directory, then guarantees the essential directory
// set exists.
func (b *Builder) BuildFromImage(ref, target string) error {
	logger := log.WithComponent("rootfs")
	logger.Info().Str("image", ref).Str("target", target).Msg("building rootfs")

	if err := os.MkdirAll(target, 0o755); err != nil {
		return errdefs.System("Failed to create rootfs directory: %v", err)
	}

	layers, err := b.images.GetLayers(ref)
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		return errdefs.System("Image %s has no layers", ref)
	}

	for idx, layer := range layers {
		logger.Debug().Int("layer", idx+1).Int("total", len(layers)).Str("path", layer).Msg("extracting layer")
		if err := extractLayer(layer, target); err != nil {
			return err
		}
	}

	return EnsureEssentialDirs(target)
}

// extractLayer untars one layer into target using the host tar utility.
// Gzip compression is detected by file extension.
func extractLayer(layerPath, target string) error {
	if _, err := os.Stat(layerPath); err != nil {
		return errdefs.System("Layer file does not exist: %s", layerPath)
	}

	ext := filepath.Ext(layerPath)
	flags := "-xf"
	if ext == ".gz" || ext == ".tgz" {
		flags = "-xzf"
	}

	cmd := exec.Command("tar", flags, layerPath,
		"-C", target,
		"--no-same-owner", "--no-same-permissions")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errdefs.System("Failed to extract layer %s: %s", layerPath, strings.TrimSpace(string(output)))
	}
	return nil
}

// EnsureEssentialDirs creates the directories every container expects,
// without touching anything a layer already provided.
func EnsureEssentialDirs(target string) error {
	for _, dir := range essentialDirs {
		path := filepath.Join(target, dir)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return errdefs.System("Failed to create directory %s: %v", dir, err)
			}
		}
	}
	return nil
}

// BuildMinimal creates a bare rootfs skeleton with a handful of host
// binaries, used when the requested image is not in the store.
func (b *Builder) BuildMinimal(target string) error {
	logger := log.WithComponent("rootfs")
	logger.Warn().Str("target", target).Msg("creating minimal rootfs (no image)")

	if err := os.MkdirAll(target, 0o755); err != nil {
		return errdefs.System("Failed to create rootfs directory: %v", err)
	}

	for _, dir := range minimalDirs {
		if err := os.MkdirAll(filepath.Join(target, dir), 0o755); err != nil {
			return errdefs.System("Failed to create directory %s: %v", dir, err)
		}
	}

	copyEssentialBinaries(target)
	return nil
}

func copyEssentialBinaries(target string) {
	logger := log.WithComponent("rootfs")
	for _, binary := range essentialBinaries {
		if _, err := os.Stat(binary); err != nil {
			continue
		}
		dest := filepath.Join(target, strings.TrimPrefix(binary, "/"))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			logger.Debug().Str("binary", binary).Err(err).Msg("failed to create directory")
			continue
		}
		if err := copyFile(binary, dest); err != nil {
			logger.Debug().Str("binary", binary).Err(err).Msg("failed to copy")
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
