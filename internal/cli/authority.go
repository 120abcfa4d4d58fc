package cli

import (
	"encoding/json"
	"fmt"

	"github.com/information-sharing-networks/saturn-demo/internal/authority"
	"github.com/information-sharing-networks/saturn-demo/internal/services"
	"github.com/information-sharing-networks/saturn-demo/internal/trust"
	"github.com/spf13/cobra"
)

var authorityCmd = &cobra.Command{
	Use:   "authority <url>",
	Short: "Fetch and check an authority document",
	Long: `Fetch a provider (or payee) authority document, verify it the way the merchant does
during a payment and print it.

Example:
  merchant-cli authority https://spacebank.com/authority
  merchant-cli authority --payee https://spacebank.com/payees/86344`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthority,
}

var (
	authorityRoot string
	payeeDocument bool
)

func init() {
	authorityCmd.Flags().StringVar(&authorityRoot, "root", "payment", "trust root: payment or acquirer")
	authorityCmd.Flags().BoolVar(&payeeDocument, "payee", false, "the URL is a payee authority")
}

func runAuthority(cmd *cobra.Command, args []string) error {
	root, err := parseTrustRoot(authorityRoot)
	if err != nil {
		return err
	}

	verifier, err := trust.NewVerifier(cmd.Context(), trustConfig(cfg), appLogger)
	if err != nil {
		return err
	}
	resolver := authority.NewResolver(services.NewClient(cfg.OutboundRequestTimeout), verifier, 0, appLogger)

	var doc any
	if payeeDocument {
		doc, err = resolver.PayeeAuthority(cmd.Context(), args[0], root)
	} else {
		doc, err = resolver.ProviderAuthority(cmd.Context(), args[0], root)
	}
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ authority accepted under the %s root\n%s\n", root, b)
	return nil
}
