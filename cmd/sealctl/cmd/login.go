package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

// LoginOutput represents the JSON/YAML output for the login command.
type LoginOutput struct {
	Token     string `json:"token" yaml:"token"`
	Address   string `json:"address" yaml:"address"`
	ExpiresAt string `json:"expires_at" yaml:"expires_at"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the biometric credential and mint a session token",
	Long: `Prove possession of the registered credential behind a biometric prompt
and exchange the assertion for a short-lived session token.

The token is printed to stdout and held only in memory; it is never written
to disk. Pass it to other tools as a bearer credential.

Examples:
  sealctl login
  TOKEN=$(sealctl login -o json | jq -r .token)`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.AuthenticateWithCredential(cmd.Context())
	if err != nil {
		return err
	}

	output := LoginOutput{
		Token:     resp.Token,
		Address:   resp.Address,
		ExpiresAt: resp.ExpiresAt.Format("2006-01-02 15:04:05"),
	}
	if outputFormat != "table" {
		return formatOutput(output)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Session authenticated as %s\n", ok("✓"), output.Address)
	fmt.Printf("Expires: %s\n", output.ExpiresAt)
	fmt.Printf("%s\n", output.Token)
	return nil
}
