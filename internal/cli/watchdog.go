package cli

import (
	"github.com/spf13/cobra"

	"data-service/internal/app"
)

var watchdogOnce bool

var watchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Supervise the query service and its sibling ingesters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), app.WatchOptions{Once: watchdogOnce})
	},
}

func init() {
	watchdogCmd.Flags().BoolVar(&watchdogOnce, "once", false, "Run a single supervision pass and exit (for external schedulers)")
}
