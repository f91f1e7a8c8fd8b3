package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cubo",
	Short: "Cubo - A lightweight containerization tool",
	Long: `Cubo is a lightweight containerization tool focused on isolation
and simplicity: build images from Cubofiles, pull them from OCI
registries, and run them as namespace-isolated processes.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cubo version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("root-dir", "", "Runtime root directory (overrides CUBO_ROOT)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging, applyRootDir)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(initCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// applyRootDir exports --root-dir as CUBO_ROOT so every component
// resolves the same runtime root.
func applyRootDir() {
	if rootDir, _ := rootCmd.PersistentFlags().GetString("root-dir"); rootDir != "" {
		os.Setenv("CUBO_ROOT", rootDir)
	}
}
