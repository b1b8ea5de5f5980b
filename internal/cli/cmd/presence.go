package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Show who is online right now",
	Run: func(cmd *cobra.Command, args []string) {
		if !requireToken() {
			return
		}

		c := getClient()
		result, err := c.Presence()
		if err != nil {
			out.Error("Failed to fetch presence: %v", err)
			return
		}

		if jsonOutput {
			out.JSON(result)
			return
		}

		out.Header("Presence")
		out.KeyValue("Online", fmt.Sprint(result.Count))
		if len(result.OnlineUserIDs) > 0 {
			out.KeyValue("Users", strings.Join(result.OnlineUserIDs, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(presenceCmd)
}
