package readapi

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
	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/stream"
)

var (
	_ membership.RecordReader = (*Client)(nil)
	_ stream.Reader           = (*Client)(nil)
	_ StatusReader            = (*Client)(nil)
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string        `env:"READ_API_URL,required"`
	Timeout time.Duration `env:"READ_API_TIMEOUT" envDefault:"10s"`
}

// Client reads membership state through a read API instead of the ledger and
// streaming service. A 404 is reported exactly as the direct readers report
// an absent value.
type Client struct {
	base string
	http *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client. Nil clients are ignored.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		base: strings.TrimRight(cfg.BaseURL, "/") + "/v1",
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SubscriptionConfig(ctx context.Context, target membership.Target) (*membership.SubscriptionConfig, error) {
	var cfg membership.SubscriptionConfig
	found, err := c.get(ctx, "/configs/"+targetPath(target), &cfg)
	if !found || err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) SubscriptionRecord(ctx context.Context, subscriber ledger.PublicKey, target membership.Target) (*membership.SubscriptionRecord, error) {
	var rec membership.SubscriptionRecord
	found, err := c.get(ctx, "/records/"+targetPath(target)+"/"+subscriber.String(), &rec)
	if !found || err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) GlobalConfig(ctx context.Context) (*ledger.GlobalConfig, error) {
	var cfg ledger.GlobalConfig
	found, err := c.get(ctx, "/global", &cfg)
	if !found || err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) AccountExists(ctx context.Context, address ledger.PublicKey) (bool, error) {
	var res existsResponse
	found, err := c.get(ctx, "/accounts/"+address.String()+"/exists", &res)
	if err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("%w: exists endpoint not found", ErrBadResponse)
	}
	return res.Exists, nil
}

// Get returns stream.ErrNotFound for unknown streams.
func (c *Client) Get(ctx context.Context, id ledger.PublicKey) (*stream.Stream, error) {
	var s stream.Stream
	found, err := c.get(ctx, "/streams/"+id.String(), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, stream.ErrNotFound
	}
	return &s, nil
}

func (c *Client) ListBySender(ctx context.Context, sender ledger.PublicKey) ([]stream.Stream, error) {
	var res streamsResponse
	q := url.Values{"sender": {sender.String()}}
	found, err := c.get(ctx, "/streams?"+q.Encode(), &res)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: streams endpoint not found", ErrBadResponse)
	}
	return res.Streams, nil
}

// Resolve returns the status as resolved, and cached, by the serving side.
func (c *Client) Resolve(ctx context.Context, subscriber ledger.PublicKey, target membership.Target) (*membership.Status, error) {
	var st membership.Status
	found, err := c.get(ctx, "/status/"+targetPath(target)+"/"+subscriber.String(), &st)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: status endpoint not found", ErrBadResponse)
	}
	return &st, nil
}

func targetPath(t membership.Target) string {
	if t.IsPlatform() {
		return "platform"
	}
	return "creators/" + t.Creator().String()
}

// get decodes a 200 body into out and reports false on 404.
func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return false, errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return false, errors.Join(ErrRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.StatusCode != http.StatusOK {
		var body ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&body)
		return false, fmt.Errorf("%w: status %d %s", ErrRequestFailed, res.StatusCode, body.Code)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return false, errors.Join(ErrBadResponse, err)
	}
	return true, nil
}
