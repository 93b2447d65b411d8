package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the active session and wipe session-scoped material",
	Long: `Wipe all session-scoped key material and any cached session token.

Session tokens are never written to disk, so tokens exported to other
processes simply expire on their own; this command clears the local session
state and confirms the durable identity linkage is untouched.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	client.EndSession()

	if outputFormat != "table" {
		return formatOutput(map[string]string{"status": "logged_out"})
	}
	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Session ended\n", ok("✓"))
	return nil
}
