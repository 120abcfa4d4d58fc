// keygen generates the merchant signing key and test keys for the payment and acquirer trust roots.
package main

import (
	"fmt"
	"os"

	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/version"
	"github.com/spf13/cobra"
)

// file naming convention - name.public.jwk and name.private.jwk
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwk"
)

var (
	name      string
	outputDir string
	keyType   string
	rsaSize   int
	kid       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "JWK key generator for the Saturn merchant",
		Long: `Generate RSA or Ed25519 key pairs in JWK format.

The private key is used by the merchant as SIGNING_KEY_PATH. Public keys of test banks and
acquirers go in PAYMENT_ROOT_KEYS_DIR or ACQUIRER_ROOT_KEYS_DIR.`,
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long:  "Generate a new RSA or Ed25519 key pair in JWK format",
		RunE:  runGenerate,
	}

	generateCmd.Flags().StringVarP(&name, "name", "n", "", "Key file name prefix (e.g., spaceshop) [required]")
	generateCmd.Flags().StringVarP(&keyType, "type", "t", "ed25519", "Key type: rsa or ed25519")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	generateCmd.Flags().IntVarP(&rsaSize, "size", "s", 4096, "RSA key size in bits (2048 or 4096)")
	generateCmd.Flags().StringVarP(&kid, "kid", "k", "", "Key ID (default: derived from the key thumbprint)")
	_ = generateCmd.MarkFlagRequired("name")
	_ = generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	alg, err := crypto.ParseAlgorithm(keyType)
	if err != nil {
		return err
	}

	var privateKey any
	switch alg {
	case crypto.AlgorithmEd25519:
		k, err := crypto.GenerateEd25519KeyPair()
		if err != nil {
			return fmt.Errorf("failed to generate Ed25519 key: %w", err)
		}
		privateKey = k
	case crypto.AlgorithmRSA:
		if rsaSize != 2048 && rsaSize != 4096 {
			return fmt.Errorf("invalid RSA key size: %d (must be 2048 or 4096)", rsaSize)
		}
		k, err := crypto.GenerateRSAKeyPair(rsaSize)
		if err != nil {
			return fmt.Errorf("failed to generate RSA key: %w", err)
		}
		privateKey = k
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	publicKey, err := crypto.PublicKeyOf(privateKey)
	if err != nil {
		return err
	}

	keyID := kid
	if keyID == "" {
		keyID, err = crypto.GenerateKeyID(publicKey)
		if err != nil {
			return fmt.Errorf("failed to generate key ID: %w", err)
		}
	}

	for _, f := range []struct {
		raw      any
		filename string
		label    string
	}{
		{publicKey, fmt.Sprintf(publicKeyFileNameFormat, name), "Public JWK: "},
		{privateKey, fmt.Sprintf(privateKeyFileNameFormat, name), "Private JWK:"},
	} {
		key, err := crypto.KeyToJWK(f.raw, keyID)
		if err != nil {
			return err
		}
		if err := crypto.SaveKeyToJWKFile(key, outputDir, f.filename); err != nil {
			return fmt.Errorf("failed to save %s: %w", f.filename, err)
		}
		fmt.Printf("✓ %s %s/%s (kid: %s)\n", f.label, outputDir, f.filename, keyID)
	}
	return nil
}
