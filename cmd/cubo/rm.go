package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

var rmCmd = &cobra.Command{
	Use:   "rm <container>...",
	Short: "Remove containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		engine, err := runtime.New(runtime.ConfigFromEnv())
		if err != nil {
			return err
		}

		failed := 0
		for _, identifier := range args {
			containerID, err := engine.ResolveContainer(identifier)
			if err == nil {
				err = engine.RemoveContainer(cmd.Context(), containerID, force)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", identifier, err)
				failed++
				continue
			}
			fmt.Println(identifier)
		}

		if failed > 0 {
			return errdefs.System("Some containers could not be removed")
		}
		return nil
	},
}

func init() {
	rmCmd.Flags().BoolP("force", "f", false, "Force remove running containers")
}
