package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/image"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List stored blueprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runtime.ConfigFromEnv()
		store, err := image.NewStore(filepath.Join(cfg.RootDir, "images"))
		if err != nil {
			return err
		}

		images, err := store.ListImages()
		if err != nil {
			return err
		}
		for _, ref := range images {
			fmt.Println(ref)
		}
		return nil
	},
}
