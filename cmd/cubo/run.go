package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/log"
	"github.com/medamarfilali/cubo/pkg/network"
	"github.com/medamarfilali/cubo/pkg/runtime"
	"github.com/medamarfilali/cubo/pkg/types"
	"github.com/medamarfilali/cubo/pkg/volume"
)

var runCmd = &cobra.Command{
	Use:   "run <blueprint> [command...]",
	Short: "Run a container from a blueprint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		detach, _ := cmd.Flags().GetBool("detach")
		volumes, _ := cmd.Flags().GetStringArray("volume")
		publishes, _ := cmd.Flags().GetStringArray("publish")
		envs, _ := cmd.Flags().GetStringArray("env")
		workdir, _ := cmd.Flags().GetString("workdir")

		logger := log.WithComponent("cli")

		engine, err := runtime.New(runtime.ConfigFromEnv())
		if err != nil {
			return err
		}

		command := args[1:]
		if len(command) == 0 {
			command = []string{"/bin/sh"}
		}

		container := types.NewContainer(args[0], command)
		if name != "" {
			container.WithName(name)
		}
		if workdir != "" {
			container.WithWorkdir(workdir)
		}

		for _, env := range envs {
			key, value, ok := parseEnvVar(env)
			if !ok {
				logger.Warn().Str("env", env).Msg("invalid environment variable format")
				continue
			}
			container.WithEnv(key, value)
		}

		for _, spec := range volumes {
			mount, ok := volume.ParseSpec(spec)
			if !ok {
				logger.Warn().Str("volume", spec).Msg("invalid volume format")
				continue
			}
			container.WithVolume(mount)
		}

		for _, spec := range publishes {
			port, ok := network.ParsePortSpec(spec)
			if !ok {
				logger.Warn().Str("publish", spec).Msg("invalid port format")
				continue
			}
			container.WithPort(port)
		}

		ctx := cmd.Context()
		containerID, err := engine.CreateContainer(ctx, container)
		if err != nil {
			return err
		}

		if err := engine.StartContainer(ctx, containerID, detach); err != nil {
			// Roll back the bundle when the launch never produced a pid.
			if cleanupErr := engine.RemoveContainer(ctx, containerID, true); cleanupErr != nil {
				logger.Error().Err(cleanupErr).Msg("failed to clean up container after start failure")
			}
			return err
		}

		if detach {
			fmt.Println(containerID)
			return nil
		}

		final, err := engine.GetContainer(containerID)
		if err != nil {
			return err
		}
		if final.ExitCode != nil && *final.ExitCode != 0 {
			os.Exit(*final.ExitCode)
		}
		return nil
	},
}

func init() {
	// Flags after the blueprint belong to the container command.
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().StringP("name", "n", "", "Assign a name to the container")
	runCmd.Flags().BoolP("detach", "d", false, "Run container in the background")
	runCmd.Flags().StringArrayP("volume", "v", nil, "Bind mount a volume (HOST:CONTAINER[:ro])")
	runCmd.Flags().StringArrayP("publish", "p", nil, "Publish a port (HOST:CONTAINER[/tcp|/udp])")
	runCmd.Flags().StringArrayP("env", "e", nil, "Set an environment variable (KEY=value)")
	runCmd.Flags().StringP("workdir", "w", "", "Working directory inside the container")
}

// parseEnvVar splits KEY=value on the first equals sign.
func parseEnvVar(env string) (string, string, bool) {
	key, value, found := strings.Cut(env, "=")
	if !found || key == "" {
		return "", "", false
	}
	return key, value, true
}
