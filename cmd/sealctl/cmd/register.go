package cmd

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sealwrite/sealwrite/pkg/wallet"
)

var registerLabel string

func init() {
	registerCmd.Flags().StringVar(&registerLabel, "label", "", "Human-readable device label (required)")
	registerCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(registerCmd)
}

// RegisterOutput represents the JSON/YAML output for the register command.
type RegisterOutput struct {
	DerivedAddress string `json:"derived_address" yaml:"derived_address"`
	CredentialID   string `json:"credential_id" yaml:"credential_id"`
	DeviceLabel    string `json:"device_label" yaml:"device_label"`
	WalletAddress  string `json:"wallet_address" yaml:"wallet_address"`
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device's biometric credential as a ledger identity",
	Long: `Create a platform-authenticator credential behind a biometric prompt,
derive a ledger identity from its public key, and register the linkage with
the registry.

The registration is signed with the device wallet key to prove the user who
registers the biometric also controls the ledger identity. A wallet key is
generated on first use and kept in the state directory.

Examples:
  sealctl register --label "work laptop"
  sealctl register --label "work laptop" -o json`,
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	keystore := wallet.NewFileKeyStore(filepath.Join(defaultStateDir(), "wallet.pem"))
	walletKey, err := keystore.LoadOrGenerate()
	if err != nil {
		return err
	}
	defer walletKey.Zero()

	linkage, err := client.RegisterBiometricIdentity(cmd.Context(), registerLabel, walletKey)
	if err != nil {
		return err
	}

	output := RegisterOutput{
		DerivedAddress: linkage.DerivedAddress,
		CredentialID:   base64.StdEncoding.EncodeToString(linkage.CredentialID),
		DeviceLabel:    linkage.DeviceLabel,
		WalletAddress:  walletKey.Address(),
	}
	if outputFormat != "table" {
		return formatOutput(output)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Registered biometric identity\n", ok("✓"))
	fmt.Printf("Address:    %s\n", output.DerivedAddress)
	fmt.Printf("Credential: %s\n", output.CredentialID)
	fmt.Printf("Label:      %s\n", output.DeviceLabel)
	fmt.Printf("Wallet:     %s\n", output.WalletAddress)
	return nil
}
