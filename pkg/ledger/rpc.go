package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// RPCConfig configures the JSON-RPC account reader.
type RPCConfig struct {
	Endpoint   string        `env:"LEDGER_RPC_URL,required"`                      // JSON-RPC endpoint of a ledger node.
	Commitment string        `env:"LEDGER_RPC_COMMITMENT" envDefault:"confirmed"` // Commitment level for reads.
	Timeout    time.Duration `env:"LEDGER_RPC_TIMEOUT" envDefault:"10s"`          // Per-request timeout.
}

// RPCClient reads accounts over the ledger's JSON-RPC interface.
type RPCClient struct {
	cfg  RPCConfig
	http *http.Client
	id   atomic.Uint64
}

// RPCOption configures an RPCClient.
type RPCOption func(*RPCClient)

// WithHTTPClient overrides the HTTP client. Nil clients are ignored.
func WithHTTPClient(c *http.Client) RPCOption {
	return func(r *RPCClient) {
		if c != nil {
			r.http = c
		}
	}
}

// NewRPCClient returns an RPC-backed AccountReader.
func NewRPCClient(cfg RPCConfig, opts ...RPCOption) (*RPCClient, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &RPCClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type accountInfoResponse struct {
	Result *struct {
		Value *struct {
			Data     []string `json:"data"`
			Lamports uint64   `json:"lamports"`
			Owner    string   `json:"owner"`
		} `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// GetAccount implements AccountReader.
func (c *RPCClient) GetAccount(ctx context.Context, address PublicKey) (*Account, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.id.Add(1),
		Method:  "getAccountInfo",
		Params: []any{
			address.String(),
			map[string]string{"encoding": "base64", "commitment": c.cfg.Commitment},
		},
	}

	var resp accountInfoResponse
	if err := c.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %d %s", ErrRPCResponse, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil || resp.Result.Value == nil {
		return nil, ErrAccountNotFound
	}

	value := resp.Result.Value
	if len(value.Data) == 0 {
		return nil, fmt.Errorf("%w: account data missing", ErrRPCResponse)
	}
	data, err := base64.StdEncoding.DecodeString(value.Data[0])
	if err != nil {
		return nil, errors.Join(ErrRPCResponse, err)
	}
	owner, err := ParsePublicKey(value.Owner)
	if err != nil {
		return nil, errors.Join(ErrRPCResponse, err)
	}

	return &Account{
		Address:  address,
		Owner:    owner,
		Lamports: value.Lamports,
		Data:     data,
	}, nil
}

func (c *RPCClient) call(ctx context.Context, req rpcRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Join(ErrRPCRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Join(ErrRPCRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Join(ErrRPCRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrRPCRequest, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Join(ErrRPCResponse, err)
	}
	return nil
}
