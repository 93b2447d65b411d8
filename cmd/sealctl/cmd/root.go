// Package cmd implements the sealctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sealwrite/sealwrite/internal/version"
	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/sealwrite"
	"github.com/sealwrite/sealwrite/pkg/store"
)

var (
	// Global flags
	outputFormat string
	dbPath       string
	registryURL  string
	relyingParty string
	stateDir     string
)

var rootCmd = &cobra.Command{
	Use:   "sealctl",
	Short: "Biometric write-authorization CLI",
	Long: `sealctl manages a biometric-anchored ledger identity.

It registers a platform-authenticator credential as a verifiable ledger
identity, authorizes content writes behind a biometric prompt, and manages
the local session.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		store.SetCLIName("sealctl")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.local/share/sealctl/sealwrite.db)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "http://localhost:18090", "Registry base URL")
	rootCmd.PersistentFlags().StringVar(&relyingParty, "rp", "sealwrite.local", "Relying party id credentials are scoped to")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Authenticator state directory (default: ~/.local/share/sealctl)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// RegistryURL returns the configured registry base URL (for error hints).
func RegistryURL() string { return registryURL }

// OutputFormat returns the configured output format.
func OutputFormat() string { return outputFormat }

// defaultStateDir is where the CLI keeps authenticator and wallet state.
func defaultStateDir() string {
	if stateDir != "" {
		return stateDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "sealctl")
}

// newAuthenticator builds the software authenticator backed by the state
// directory. On platforms with a native bridge this is where it would be
// selected instead.
func newAuthenticator() *authenticator.Emulator {
	return authenticator.NewEmulator(
		authenticator.WithOrigin("https://"+relyingParty),
		authenticator.WithStateDir(filepath.Join(defaultStateDir(), "authenticator")),
	)
}

// newClient builds the high-level client for the configured registry.
func newClient() (*sealwrite.Client, error) {
	return sealwrite.New(newAuthenticator(), sealwrite.Config{
		RegistryURL:  registryURL,
		RelyingParty: relyingParty,
		DBPath:       dbPath,
	})
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(data)
	case "yaml":
		return outputYAML(data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
