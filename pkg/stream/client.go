package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creatorkit/membership/pkg/ledger"
)

// Config configures the HTTP reader of the streaming service.
type Config struct {
	BaseURL string        `env:"STREAM_API_URL,required"`             // Base URL of the streaming-service indexer API.
	APIKey  string        `env:"STREAM_API_KEY"`                      // Optional bearer token.
	Timeout time.Duration `env:"STREAM_API_TIMEOUT" envDefault:"10s"` // Per-request timeout.
}

// Client reads streams from the streaming service's HTTP API.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewClient returns an HTTP-backed Reader.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Get implements Reader.
func (c *Client) Get(ctx context.Context, id ledger.PublicKey) (*Stream, error) {
	var s Stream
	if err := c.get(ctx, "/streams/"+url.PathEscape(id.String()), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListBySender implements Reader.
func (c *Client) ListBySender(ctx context.Context, sender ledger.PublicKey) ([]Stream, error) {
	var out struct {
		Streams []Stream `json:"streams"`
	}
	q := url.Values{"sender": {sender.String()}}
	if err := c.get(ctx, "/streams?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Streams, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrRequestFailed, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Join(ErrBadResponse, err)
	}
	return nil
}
