package cmd

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sealwrite/sealwrite/pkg/clierror"
	"github.com/sealwrite/sealwrite/pkg/wallet"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// WhoamiOutput represents the JSON/YAML output for the whoami command.
type WhoamiOutput struct {
	DerivedAddress string `json:"derived_address" yaml:"derived_address"`
	CredentialID   string `json:"credential_id" yaml:"credential_id"`
	DeviceLabel    string `json:"device_label" yaml:"device_label"`
	WalletAddress  string `json:"wallet_address,omitempty" yaml:"wallet_address,omitempty"`
	RegisteredAt   string `json:"registered_at" yaml:"registered_at"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show this device's registered ledger identity",
	Long: `Display the identity registered from this device: the derived ledger
address, the credential handle it is bound to, and the device label.

Returns a non-zero exit code if the device has never registered.

Examples:
  sealctl whoami
  sealctl whoami -o json`,
	RunE: runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	linkage, err := client.ActiveIdentity()
	if err != nil {
		return err
	}
	if linkage == nil {
		return clierror.NotRegistered()
	}

	output := WhoamiOutput{
		DerivedAddress: linkage.DerivedAddress,
		CredentialID:   base64.StdEncoding.EncodeToString(linkage.CredentialID),
		DeviceLabel:    linkage.DeviceLabel,
		RegisteredAt:   linkage.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	keystore := wallet.NewFileKeyStore(filepath.Join(defaultStateDir(), "wallet.pem"))
	if keystore.Exists() {
		if walletKey, err := keystore.Load(); err == nil {
			output.WalletAddress = walletKey.Address()
			walletKey.Zero()
		}
	}

	if outputFormat != "table" {
		return formatOutput(output)
	}

	fmt.Printf("Address:    %s\n", output.DerivedAddress)
	fmt.Printf("Credential: %s\n", output.CredentialID)
	fmt.Printf("Label:      %s\n", output.DeviceLabel)
	if output.WalletAddress != "" {
		fmt.Printf("Wallet:     %s\n", output.WalletAddress)
	}
	fmt.Printf("Registered: %s\n", output.RegisteredAt)
	return nil
}
