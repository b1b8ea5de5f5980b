package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	activityActor string
	activityPage  int
	activityLimit int
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "List activity log entries (admin)",
	Run: func(cmd *cobra.Command, args []string) {
		if !requireToken() {
			return
		}

		c := getClient()
		result, err := c.Activity(activityActor, activityPage, activityLimit)
		if err != nil {
			out.Error("Failed to list activity: %v", err)
			return
		}

		if jsonOutput {
			out.JSON(result)
			return
		}

		if result.Total == 0 {
			out.Info("No activity entries")
			return
		}

		out.Header("Activity")
		out.KeyValue("Total", fmt.Sprint(result.Total))
		out.Divider()
		for _, e := range result.Entries {
			target := e.Target
			if target == "" {
				target = "-"
			}
			out.KeyValue(e.CreatedAt.Format(time.RFC3339),
				fmt.Sprintf("%s %s %s", e.Actor, e.Action, target))
		}
	},
}

func init() {
	activityCmd.Flags().StringVar(&activityActor, "actor", "", "filter by actor")
	activityCmd.Flags().IntVar(&activityPage, "page", 1, "page number")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 20, "page size")
	rootCmd.AddCommand(activityCmd)
}
