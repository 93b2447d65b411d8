package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sealwrite/sealwrite/pkg/proposal"
)

var (
	signFile string
	signTier string
)

func init() {
	signCmd.Flags().StringVarP(&signFile, "file", "f", "", "Content file to write ('-' or empty reads stdin)")
	signCmd.Flags().StringVar(&signTier, "tier", "standard", "Payment tier: standard, priority, permanent")
	rootCmd.AddCommand(signCmd)
}

// SignOutput represents the JSON/YAML output for the sign command.
type SignOutput struct {
	ProposalID    string `json:"proposal_id" yaml:"proposal_id"`
	Path          string `json:"path" yaml:"path"`
	ContentDigest string `json:"content_digest" yaml:"content_digest"`
	Tier          string `json:"tier" yaml:"tier"`
	SignerAddress string `json:"signer_address" yaml:"signer_address"`
	State         string `json:"state" yaml:"state"`
}

var signCmd = &cobra.Command{
	Use:   "sign <ledger-path>",
	Short: "Authorize a content write behind a biometric prompt",
	Long: `Request a challenge for the given ledger path and content, sign it with
the registered biometric credential, and submit the proposal for
verification.

Each invocation uses a fresh single-use challenge. If the prompt is
cancelled or the challenge expires, re-run the command; nothing is retried
silently.

Examples:
  sealctl sign /docs/readme --file readme.md
  cat data.bin | sealctl sign /blobs/data --tier permanent`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func parseTier(s string) (proposal.Tier, error) {
	switch s {
	case "standard":
		return proposal.TierStandard, nil
	case "priority":
		return proposal.TierPriority, nil
	case "permanent":
		return proposal.TierPermanent, nil
	default:
		return 0, fmt.Errorf("unknown tier %q (want standard, priority or permanent)", s)
	}
}

func readContent(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runSign(cmd *cobra.Command, args []string) error {
	tier, err := parseTier(signTier)
	if err != nil {
		return err
	}
	content, err := readContent(signFile)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.SignWriteProposal(cmd.Context(), proposal.WriteIntent{
		Path:    args[0],
		Content: content,
		Tier:    tier,
	})
	if err != nil {
		return err
	}

	output := SignOutput{
		ProposalID:    result.Receipt.ProposalID,
		Path:          result.Receipt.Path,
		ContentDigest: result.Receipt.ContentDigest,
		Tier:          proposal.Tier(result.Receipt.Tier).String(),
		SignerAddress: result.Receipt.SignerAddress,
		State:         result.State.String(),
	}
	if outputFormat != "table" {
		return formatOutput(output)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Write authorized\n", ok("✓"))
	fmt.Printf("Proposal: %s\n", output.ProposalID)
	fmt.Printf("Path:     %s\n", output.Path)
	fmt.Printf("Digest:   %s\n", output.ContentDigest)
	fmt.Printf("Tier:     %s\n", output.Tier)
	fmt.Printf("Signer:   %s\n", output.SignerAddress)
	return nil
}
