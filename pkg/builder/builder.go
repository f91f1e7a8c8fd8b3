package builder

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/log"
	"github.com/medamarfilali/cubo/pkg/recipe"
	"github.com/medamarfilali/cubo/pkg/registry"
	"github.com/medamarfilali/cubo/pkg/rootfs"
)

// ImageBuilder applies recipe steps to an extracted base image and
// emits a new single-layer image into the store.
type ImageBuilder struct {
	images       *image.Store
	buildContext string
}

// New returns a builder resolving COPY sources against buildContext.
func New(images *image.Store, buildContext string) *ImageBuilder {
	return &ImageBuilder{
		images:       images,
		buildContext: buildContext,
	}
}

// Build runs a text-form recipe and stores the result as imageRef.
func (b *ImageBuilder) Build(ctx context.Context, cubofile *recipe.Cubofile, imageRef string) error {
	logger := log.WithComponent("builder")
	logger.Info().Str("image", imageRef).Msg("building image")

	baseImage := cubofile.BaseImage()
	if baseImage == "" {
		return errdefs.InvalidConfiguration("Cubofile must start with BASE instruction")
	}
	logger.Info().Str("base", baseImage).Msg("base image")

	workRootfs, cleanup, config, err := b.prepare(ctx, baseImage)
	if err != nil {
		return err
	}
	defer cleanup()

	for idx, inst := range cubofile.Instructions {
		step := idx + 1
		switch inst.Kind {
		case recipe.KindBase:
			logger.Debug().Int("step", step).Msg("BASE (already applied)")

		case recipe.KindRun:
			logger.Info().Int("step", step).Str("command", inst.Command).Msg("RUN")
			if err := b.executeRun(workRootfs, inst.Command); err != nil {
				return err
			}

		case recipe.KindCopy:
			logger.Info().Int("step", step).Str("src", inst.Src).Str("dest", inst.Dest).Msg("COPY")
			if err := b.executeCopy(workRootfs, inst.Src, inst.Dest); err != nil {
				return err
			}

		case recipe.KindEnv:
			logger.Info().Int("step", step).Str("key", inst.Key).Msg("ENV")
			config.Env = append(config.Env, inst.Key+"="+inst.Value)

		case recipe.KindWorkdir:
			logger.Info().Int("step", step).Str("path", inst.Path).Msg("WORKDIR")
			config.WorkingDir = inst.Path

		case recipe.KindCmd:
			logger.Info().Int("step", step).Strs("argv", inst.Argv).Msg("CMD")
			config.Cmd = inst.Argv

		case recipe.KindComment:
		}
	}

	return b.commit(workRootfs, imageRef, config)
}

// BuildFromTOML runs a table-form recipe: all run steps, then all copy
// steps, then config fields.
func (b *ImageBuilder) BuildFromTOML(ctx context.Context, cubofile *recipe.TOMLFile, imageRef string) error {
	logger := log.WithComponent("builder")
	logger.Info().Str("image", imageRef).Msg("building image from TOML")

	baseImage := cubofile.BaseImage()
	logger.Info().Str("base", baseImage).Msg("base image")

	workRootfs, cleanup, config, err := b.prepare(ctx, baseImage)
	if err != nil {
		return err
	}
	defer cleanup()

	for idx, step := range cubofile.Run {
		logger.Info().Int("step", idx+1).Str("command", step.Command).Msg("RUN")
		if err := b.executeRun(workRootfs, step.Command); err != nil {
			return err
		}
	}

	for idx, step := range cubofile.Copy {
		logger.Info().Int("step", idx+1).Str("src", step.Src).Str("dest", step.Dest).Msg("COPY")
		if err := b.executeCopy(workRootfs, step.Src, step.Dest); err != nil {
			return err
		}
	}

	if cubofile.Config.Workdir != "" {
		config.WorkingDir = cubofile.Config.Workdir
	}
	if cubofile.Config.Cmd != nil {
		config.Cmd = cubofile.Config.Cmd
	}
	if len(cubofile.Config.Env) > 0 {
		keys := make([]string, 0, len(cubofile.Config.Env))
		for key := range cubofile.Config.Env {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			config.Env = append(config.Env, key+"="+cubofile.Config.Env[key])
		}
	}
	if len(cubofile.Config.Expose) > 0 {
		config.ExposedPorts = cubofile.Config.Expose
	}

	return b.commit(workRootfs, imageRef, config)
}

// prepare ensures the base image is local, extracts it into a scratch
// rootfs, and seeds the image config from the base.
func (b *ImageBuilder) prepare(ctx context.Context, baseImage string) (string, func(), *image.Config, error) {
	if err := b.ensureImageAvailable(ctx, baseImage); err != nil {
		return "", nil, nil, err
	}

	tempDir, err := os.MkdirTemp("", "cubo-build-")
	if err != nil {
		return "", nil, nil, errdefs.System("Failed to create temp dir: %v", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	workRootfs := filepath.Join(tempDir, "rootfs")
	if err := rootfs.NewBuilder(b.images).BuildFromImage(baseImage, workRootfs); err != nil {
		cleanup()
		return "", nil, nil, err
	}

	baseConfig, err := b.images.GetConfig(baseImage)
	if err != nil {
		cleanup()
		return "", nil, nil, err
	}
	config := *baseConfig

	return workRootfs, cleanup, &config, nil
}

// commit tars the working rootfs into a single layer, moves it into the
// blob store, and writes the manifest as the final step.
func (b *ImageBuilder) commit(workRootfs, imageRef string, config *image.Config) error {
	logger := log.WithComponent("builder")
	logger.Info().Msg("creating image layer from built rootfs")

	layerTar := filepath.Join(filepath.Dir(workRootfs), "layer.tar")
	if err := createLayerTar(workRootfs, layerTar); err != nil {
		return err
	}

	finalLayerPath := filepath.Join(b.images.BlobsDir(), image.SafeReference(imageRef)+".tar")
	if err := os.MkdirAll(filepath.Dir(finalLayerPath), 0o755); err != nil {
		return errdefs.System("Failed to create blobs dir: %v", err)
	}
	if err := os.Rename(layerTar, finalLayerPath); err != nil {
		// The scratch dir may live on another filesystem.
		if err := copyFile(layerTar, finalLayerPath); err != nil {
			return errdefs.System("Failed to copy layer: %v", err)
		}
	}

	if err := b.images.SaveManifest(&image.Manifest{
		Reference: imageRef,
		Layers:    []string{finalLayerPath},
		Config:    *config,
	}); err != nil {
		return err
	}

	logger.Info().Str("image", imageRef).Msg("successfully built image")
	return nil
}

func (b *ImageBuilder) ensureImageAvailable(ctx context.Context, imageRef string) error {
	if b.images.HasImage(imageRef) {
		return nil
	}

	log.WithComponent("builder").Info().Str("image", imageRef).Msg("base image not found locally, pulling from registry")
	return registry.NewClient(b.images).Pull(ctx, imageRef)
}

// executeRun runs a shell command chrooted into the working rootfs.
// resolv.conf, /tmp, a bound /dev, and a fresh proc are bootstrapped
// best-effort before the command and the mounts are undone after.
func (b *ImageBuilder) executeRun(workRootfs, command string) error {
	logger := log.WithComponent("builder")

	shell := "/bin/sh"
	if _, err := os.Stat(filepath.Join(workRootfs, "bin/sh")); err != nil {
		logger.Warn().Msg("no /bin/sh in rootfs, trying /bin/bash")
		if _, err := os.Stat(filepath.Join(workRootfs, "bin/bash")); err != nil {
			return errdefs.System("No shell found in rootfs (/bin/sh or /bin/bash)")
		}
		shell = "/bin/bash"
	}

	if err := copyFile("/etc/resolv.conf", filepath.Join(workRootfs, "etc/resolv.conf")); err != nil {
		logger.Warn().Err(err).Msg("failed to copy /etc/resolv.conf - network may not work")
	}

	tmpDir := filepath.Join(workRootfs, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		logger.Warn().Err(err).Msg("failed to create /tmp")
	} else {
		os.Chmod(tmpDir, 0o777|os.ModeSticky)
	}

	devDir := filepath.Join(workRootfs, "dev")
	os.MkdirAll(devDir, 0o755)
	devMounted := exec.Command("mount", "--bind", "/dev", devDir).Run() == nil
	if !devMounted {
		logger.Warn().Msg("failed to bind mount /dev - some commands may fail")
	}

	procDir := filepath.Join(workRootfs, "proc")
	os.MkdirAll(procDir, 0o755)
	procMounted := exec.Command("mount", "-t", "proc", "proc", procDir).Run() == nil

	cmd := exec.Command("chroot", workRootfs, shell, "-c", command)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if procMounted {
		exec.Command("umount", procDir).Run()
	}
	if devMounted {
		exec.Command("umount", devDir).Run()
	}

	if runErr != nil {
		return errdefs.System("RUN command failed: %s", stderr.String())
	}
	return nil
}

// executeCopy copies a build-context path into the working rootfs.
func (b *ImageBuilder) executeCopy(workRootfs, src, dest string) error {
	srcPath := filepath.Join(b.buildContext, src)
	info, err := os.Stat(srcPath)
	if err != nil {
		return errdefs.System("Source path does not exist: %s", srcPath)
	}

	destPath := filepath.Join(workRootfs, strings.TrimPrefix(dest, "/"))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errdefs.System("Failed to create dest directory: %v", err)
	}

	if info.IsDir() {
		return copyDirRecursive(srcPath, destPath)
	}
	if err := copyFile(srcPath, destPath); err != nil {
		return errdefs.System("Failed to copy file: %v", err)
	}
	return nil
}

func copyDirRecursive(src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errdefs.System("Failed to create directory: %v", err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errdefs.System("Failed to read directory: %v", err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyDirRecursive(srcPath, destPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, destPath); err != nil {
			return errdefs.System("Failed to copy file: %v", err)
		}
	}
	return nil
}

// createLayerTar archives the rootfs contents into a tar file.
func createLayerTar(workRootfs, output string) error {
	cmd := exec.Command("tar", "-cf", output, "-C", workRootfs, ".")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errdefs.System("Failed to create layer tar: %s", strings.TrimSpace(string(out)))
	}
	return nil
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
