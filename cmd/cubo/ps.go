package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/runtime"
	"github.com/medamarfilali/cubo/pkg/types"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		engine, err := runtime.New(runtime.ConfigFromEnv())
		if err != nil {
			return err
		}

		containers := engine.ListContainers(all)

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 3, ' ', 0)
		fmt.Fprintln(w, "CONTAINER ID\tIMAGE\tCOMMAND\tCREATED\tSTATUS\tNAME")
		for _, c := range containers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				c.ShortID(),
				c.Blueprint,
				formatCommand(c.Command),
				formatCreated(time.Since(c.CreatedAt)),
				colorStatus(c.Status),
				c.Name,
			)
		}
		return w.Flush()
	},
}

func init() {
	psCmd.Flags().BoolP("all", "a", false, "Show all containers (including stopped)")
}

func formatCommand(command []string) string {
	joined := strings.Join(command, " ")
	if len(joined) > 30 {
		return joined[:27] + "..."
	}
	return joined
}

// formatCreated renders an age like docker ps does.
func formatCreated(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}

func colorStatus(status types.Status) string {
	switch status {
	case types.StatusRunning:
		return color.GreenString(string(status))
	case types.StatusError:
		return color.RedString(string(status))
	case types.StatusPaused, types.StatusRestarting:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}
