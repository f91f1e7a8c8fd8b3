package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/log"
	"github.com/medamarfilali/cubo/pkg/runtime"
)

// initCmd is the hidden container init stage. The engine re-executes
// the cubo binary with this command inside freshly cloned namespaces;
// it never returns on success because the process becomes the
// container's reaper and exits with the command's status.
var initCmd = &cobra.Command{
	Use:    runtime.InitCommand + " <bundle-dir>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runtime.InitContainer(args[0]); err != nil {
			log.WithComponent("init").Error().Err(err).Msg("container setup failed")
			os.Exit(1)
		}
		os.Exit(1)
	},
}
