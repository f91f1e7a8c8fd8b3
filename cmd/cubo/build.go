package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/builder"
	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/recipe"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

var buildCmd = &cobra.Command{
	Use:   "build <path> [tag]",
	Short: "Build an image from a Cubofile",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buildContext := args[0]
		var tag string
		if len(args) > 1 {
			tag = args[1]
		}
		file, _ := cmd.Flags().GetString("file")

		buildFilePath, isTOML, err := detectBuildFile(buildContext, file)
		if err != nil {
			return err
		}
		if _, err := os.Stat(buildFilePath); err != nil {
			return errdefs.System("Build file not found: %s", buildFilePath)
		}

		imageTag := resolveImageTag(buildContext, tag)

		cfg := runtime.ConfigFromEnv()
		store, err := image.NewStore(filepath.Join(cfg.RootDir, "images"))
		if err != nil {
			return err
		}
		imageBuilder := builder.New(store, buildContext)

		format := "Text"
		if isTOML {
			format = "TOML"
		}

		var baseImage string
		var build func() error
		if isTOML {
			cubofile, err := recipe.ParseTOMLFile(buildFilePath)
			if err != nil {
				return err
			}
			baseImage = cubofile.BaseImage()
			build = func() error { return imageBuilder.BuildFromTOML(cmd.Context(), cubofile, imageTag) }
		} else {
			cubofile, err := recipe.ParseFile(buildFilePath)
			if err != nil {
				return err
			}
			if cubofile.BaseImage() == "" {
				return errdefs.InvalidConfiguration("Cubofile must contain a BASE instruction")
			}
			baseImage = cubofile.BaseImage()
			build = func() error { return imageBuilder.Build(cmd.Context(), cubofile, imageTag) }
		}

		fmt.Printf("Building image: %s\n", imageTag)
		fmt.Printf("Base image: %s\n", baseImage)
		fmt.Printf("Build context: %s\n", buildContext)
		fmt.Printf("Format: %s\n\n", format)

		if err := build(); err != nil {
			fmt.Printf("Build failed: %v\n\n", err)
			fmt.Println("Make sure:")
			fmt.Println("  1. The base image is available locally or pullable")
			fmt.Println("  2. You have root privileges (needed for chroot)")
			fmt.Println("  3. All COPY source files exist in the build context")
			return err
		}

		fmt.Printf("Successfully built: %s\n\n", imageTag)
		fmt.Printf("Run with: cubo run %s\n", imageTag)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringP("file", "f", "", "Path to the build file (auto-detects Cubofile.toml then Cubofile)")
	buildCmd.Flags().Bool("no-cache", false, "Do not use cache when building the image")
}

// detectBuildFile locates the recipe in the build context, preferring
// the TOML form. An explicit file is classified by its extension.
func detectBuildFile(buildContext, specified string) (string, bool, error) {
	if specified != "" {
		return filepath.Join(buildContext, specified), filepath.Ext(specified) == ".toml", nil
	}

	tomlPath := filepath.Join(buildContext, "Cubofile.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, true, nil
	}
	textPath := filepath.Join(buildContext, "Cubofile")
	if _, err := os.Stat(textPath); err == nil {
		return textPath, false, nil
	}
	return "", false, errdefs.System("No Cubofile or Cubofile.toml found in the build context")
}

// resolveImageTag returns the explicit tag, or <basename>:latest.
func resolveImageTag(path, tag string) string {
	if tag != "" {
		return tag
	}
	dirName := filepath.Base(path)
	if dirName == "." || dirName == string(filepath.Separator) || dirName == "" {
		dirName = "unnamed"
	}
	return dirName + ":latest"
}
