package cmd

import (
	"fmt"
	"time"

	"github.com/deskboard/deskboard/pkg/client"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage sessions",
}

var (
	sessionsUserID string
	sessionsPage   int
	sessionsLimit  int
)

var sessionsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List currently open sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if !requireToken() {
			return
		}

		c := getClient()
		result, err := c.ActiveSessions(sessionsUserID)
		if err != nil {
			out.Error("Failed to list active sessions: %v", err)
			return
		}

		if jsonOutput {
			out.JSON(result)
			return
		}

		if result.Total == 0 {
			out.Info("No active sessions")
			return
		}

		out.Header("Active sessions")
		out.KeyValue("Count", fmt.Sprint(result.Total))
		out.Divider()
		for _, s := range result.Sessions {
			printSession(s)
		}
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List session history",
	Long: `List session history, newest first.

Examples:
  deskboard sessions list
  deskboard sessions list --user u42 --page 2 --limit 20`,
	Run: func(cmd *cobra.Command, args []string) {
		if !requireToken() {
			return
		}

		c := getClient()
		result, err := c.Sessions(sessionsUserID, sessionsPage, sessionsLimit)
		if err != nil {
			out.Error("Failed to list sessions: %v", err)
			return
		}

		if jsonOutput {
			out.JSON(result)
			return
		}

		out.Header("Sessions")
		out.KeyValue("Total", fmt.Sprint(result.Total))
		out.KeyValue("Page", fmt.Sprintf("%d/%d", result.Page, result.Pages))
		out.Divider()
		for _, s := range result.Sessions {
			printSession(s)
		}
	},
}

var sessionsTerminateCmd = &cobra.Command{
	Use:   "terminate <session-id>",
	Short: "Terminate a session (admin)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !requireToken() {
			return
		}

		c := getClient()
		if err := c.TerminateSession(args[0]); err != nil {
			out.Error("Failed to terminate session: %v", err)
			return
		}
		out.Success("Session %s terminated", args[0])
	},
}

func printSession(s client.Session) {
	status := "open"
	if s.EndedAt != nil {
		status = "ended " + s.EndedAt.Format(time.RFC3339)
	}
	out.KeyValue(s.ID, fmt.Sprintf("user=%s socket=%s started=%s %s",
		s.UserID, s.SocketID, s.StartedAt.Format(time.RFC3339), status))
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsUserID, "user", "", "filter by user ID")
	sessionsListCmd.Flags().IntVar(&sessionsPage, "page", 1, "page number")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 10, "page size")

	sessionsCmd.AddCommand(sessionsActiveCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsTerminateCmd)
	rootCmd.AddCommand(sessionsCmd)
}
