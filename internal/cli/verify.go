package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/trust"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signed protocol message",
	Long: `Verify a compact JWS against one of the configured trust roots and print its payload.

The trust roots are configured with PAYMENT_ROOT_KEYS_DIR / PAYMENT_ROOT_JWKS_URLS and
ACQUIRER_ROOT_KEYS_DIR / ACQUIRER_ROOT_JWKS_URLS, as for the server.

Example:
  merchant-cli verify --root acquirer --jws "eyJ..."
  cat response.jws | merchant-cli verify --jws -`,
	RunE: runVerify,
}

var (
	jwsToVerify string
	verifyRoot  string
)

func init() {
	verifyCmd.Flags().StringVar(&jwsToVerify, "jws", "", "compact JWS to verify, - reads it from stdin (required)")
	verifyCmd.Flags().StringVar(&verifyRoot, "root", "payment", "trust root: payment or acquirer")
	_ = verifyCmd.MarkFlagRequired("jws")
}

func runVerify(cmd *cobra.Command, args []string) error {
	root, err := parseTrustRoot(verifyRoot)
	if err != nil {
		return err
	}

	compact := jwsToVerify
	if compact == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		compact = string(b)
	}
	compact = strings.TrimSpace(compact)

	header, err := crypto.ParseHeader(compact)
	if err != nil {
		return err
	}

	verifier, err := trust.NewVerifier(cmd.Context(), trustConfig(cfg), appLogger)
	if err != nil {
		return err
	}
	payload, err := verifier.Verify(cmd.Context(), compact, root)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, payload, "", "  "); err != nil {
		out.Reset()
		out.Write(payload)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ signature trusted by the %s root (alg %s, kid %s)\n%s\n",
		root, header.Algorithm, header.KeyID, out.String())
	return nil
}
