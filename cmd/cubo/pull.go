package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/registry"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

var pullCmd = &cobra.Command{
	Use:   "pull <image>",
	Short: "Pull an image from a registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runtime.ConfigFromEnv()
		store, err := image.NewStore(filepath.Join(cfg.RootDir, "images"))
		if err != nil {
			return err
		}

		if err := registry.NewClient(store).Pull(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Pulled: %s\n", args[0])
		return nil
	},
}
