package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/errdefs"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

var stopCmd = &cobra.Command{
	Use:   "stop <container>...",
	Short: "Stop running containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		engine, err := runtime.New(runtime.ConfigFromEnv())
		if err != nil {
			return err
		}

		timeout := engine.StopTimeout()
		if force {
			timeout = -1
		}

		failed := 0
		for _, identifier := range args {
			containerID, err := engine.ResolveContainer(identifier)
			if err == nil {
				err = engine.StopContainer(cmd.Context(), containerID, timeout)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error stopping %s: %v\n", identifier, err)
				failed++
				continue
			}
			fmt.Println(identifier)
		}

		if failed > 0 {
			return errdefs.System("Some containers could not be stopped")
		}
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolP("force", "f", false, "Kill immediately instead of waiting for the grace period")
}
