// Package cli implements merchant-cli, the operator tool of the merchant: it checks signatures
// and authority documents against the configured trust roots, follows QR sessions and migrates
// the result database.
package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/trust"
	"github.com/information-sharing-networks/saturn-demo/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.CLIEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "merchant-cli",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "Saturn merchant operator CLI",
	Long:              `merchant-cli verifies protocol messages and authority documents, follows QR sessions and migrates the merchant database`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewCLIConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(authorityCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(migrateCmd)
}

// trustConfig maps the CLI environment to the verifier configuration.
func trustConfig(cfg *config.CLIEnvironment) trust.Config {
	return trust.Config{
		Roots: map[saturn.TrustRoot]trust.RootConfig{
			saturn.TrustRootPayment:  {KeysDir: cfg.PaymentRootKeysDir, JWKSURLs: cfg.PaymentRootJWKSURLs},
			saturn.TrustRootAcquirer: {KeysDir: cfg.AcquirerRootKeysDir, JWKSURLs: cfg.AcquirerRootJWKSURLs},
		},
		SkipJWKCache: len(cfg.PaymentRootJWKSURLs) == 0 && len(cfg.AcquirerRootJWKSURLs) == 0,
	}
}

func parseTrustRoot(s string) (saturn.TrustRoot, error) {
	switch root := saturn.TrustRoot(s); root {
	case saturn.TrustRootPayment, saturn.TrustRootAcquirer:
		return root, nil
	default:
		return "", fmt.Errorf("unknown trust root %q (must be %q or %q)", s, saturn.TrustRootPayment, saturn.TrustRootAcquirer)
	}
}
