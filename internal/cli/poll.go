package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <merchant-url> <qr-id>",
	Short: "Follow a QR session",
	Long: `Long-poll a QR session the way the checkout page does and print each status token:
c (waiting), p (the wallet is working on it), s (paid) or r (cancelled or expired).
The command exits once s or r is received. Only the browser session that created the
QR session can follow it, so pass the value of its saturn_session cookie.

Example:
  merchant-cli poll --session 0b4c...e1 http://localhost:8080 17`,
	Args: cobra.ExactArgs(2),
	RunE: runPoll,
}

var (
	pollTimeout time.Duration
	pollSession string
)

func init() {
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", 2*time.Minute, "per-request timeout, must exceed the server's QR_COMET_WAIT")
	pollCmd.Flags().StringVar(&pollSession, "session", "", "browser session cookie of the checkout that created the QR session")
	_ = pollCmd.MarkFlagRequired("session")
}

func runPoll(cmd *cobra.Command, args []string) error {
	pollURL := strings.TrimSuffix(args[0], "/") + "/api/qr/poll"
	client := resty.New().
		SetTimeout(pollTimeout).
		SetCookie(&http.Cookie{Name: "saturn_session", Value: pollSession})

	for {
		resp, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("Content-Type", "text/plain").
			SetBody(args[1]).
			Post(pollURL)
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("poll returned status %d: %s", resp.StatusCode(), resp.String())
		}

		status := strings.TrimSpace(resp.String())
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", time.Now().Format(time.TimeOnly), status)
		switch status {
		case "s", "r":
			return nil
		case "c", "p":
		default:
			return fmt.Errorf("unexpected poll status %q", status)
		}
	}
}
