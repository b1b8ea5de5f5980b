package cmd

import (
	"fmt"
	"os"

	"github.com/deskboard/deskboard/internal/cli/output"
	"github.com/deskboard/deskboard/pkg/client"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	token      string
	jsonOutput bool
	out        *output.Output
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deskboard",
	Short: "CLI for the deskboard presence server",
	Long:  `deskboard is a command-line tool for inspecting and administering sessions and presence on a deskboard server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		out = output.New(jsonOutput)

		if token == "" {
			token = os.Getenv("DESKBOARD_TOKEN")
		}
		if serverURL == "" {
			serverURL = os.Getenv("DESKBOARD_SERVER")
		}
		if serverURL == "" {
			serverURL = client.DefaultServer
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $DESKBOARD_SERVER or "+client.DefaultServer+")")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT for authentication (default $DESKBOARD_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

// getClient creates a client with current flags.
func getClient() *client.Client {
	return client.New(token, client.WithServer(serverURL))
}

// requireToken prints a hint and returns false when no token is set.
func requireToken() bool {
	if token == "" {
		out.Error("No token configured. Set DESKBOARD_TOKEN or pass --token.")
		return false
	}
	return true
}
