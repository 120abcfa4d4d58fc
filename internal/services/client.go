package services

// client.go is the outbound transport used to talk to the other parties of a payment:
// payer provider, acquirer and payee provider. Every call is JSON in, JSON out.

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/version"
)

// DefaultTimeout applies to every outbound call unless configured otherwise.
const DefaultTimeout = 5 * time.Second

// Transport posts and fetches JSON documents.
type Transport interface {
	// GetJSON fetches url and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error

	// PostJSON posts body as JSON to url and decodes the JSON response into out.
	PostJSON(ctx context.Context, url string, body any, out any) error
}

// Client is the resty-backed Transport.
//
// A response is only accepted with status 200 and an application/json content type;
// anything else is a transport error carrying the URL.
type Client struct {
	http *resty.Client
}

// NewClient creates a client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "saturn-demo-merchant/"+version.Get().Version)
	return &Client{http: c}
}

func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return saturn.WrapTransportError(err, fmt.Sprintf("GET %s failed", url))
	}
	return decodeResponse(url, resp, out)
}

func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return saturn.WrapInternalError(err, "failed to marshal request body")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return saturn.WrapTransportError(err, fmt.Sprintf("POST %s failed", url))
	}
	return decodeResponse(url, resp, out)
}

func decodeResponse(url string, resp *resty.Response, out any) error {
	if resp.StatusCode() != http.StatusOK {
		return saturn.NewTransportError(fmt.Sprintf("%s returned status %d", url, resp.StatusCode()))
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return saturn.NewTransportError(fmt.Sprintf("%s returned content type %q, expected application/json",
			url, resp.Header().Get("Content-Type")))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return saturn.WrapMalformedMessageError(err, fmt.Sprintf("invalid JSON from %s", url))
	}
	return nil
}
