package ledger_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/ledger"
)

func newRPCServer(t *testing.T, handle func(method string, params []any) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handle(req.Method, req.Params))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCClient_GetAccount(t *testing.T) {
	t.Parallel()
	address := ledger.MustPublicKey("US517G5965aydkZ46HS38QLi7UQiSojurfbQfKCELFx")
	cfg := ledger.GlobalConfig{Admin: address, Treasury: ledger.NativeMint}

	t.Run("decodes base64 account data", func(t *testing.T) {
		t.Parallel()
		srv := newRPCServer(t, func(method string, params []any) any {
			assert.Equal(t, "getAccountInfo", method)
			assert.Equal(t, address.String(), params[0])
			return map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"result": map[string]any{
					"context": map[string]any{"slot": 1},
					"value": map[string]any{
						"data":     []string{base64.StdEncoding.EncodeToString(cfg.Encode()), "base64"},
						"lamports": 1_500_000,
						"owner":    ledger.TokenProgramID.String(),
					},
				},
			}
		})

		client, err := ledger.NewRPCClient(ledger.RPCConfig{Endpoint: srv.URL})
		require.NoError(t, err)

		acc, err := client.GetAccount(context.Background(), address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_500_000), acc.Lamports)
		assert.Equal(t, ledger.TokenProgramID, acc.Owner)

		decoded, err := ledger.DecodeGlobalConfig(acc.Data)
		require.NoError(t, err)
		assert.Equal(t, cfg, *decoded)
	})

	t.Run("null value means not found", func(t *testing.T) {
		t.Parallel()
		srv := newRPCServer(t, func(string, []any) any {
			return map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]any{"value": nil}}
		})

		client, err := ledger.NewRPCClient(ledger.RPCConfig{Endpoint: srv.URL})
		require.NoError(t, err)

		_, err = client.GetAccount(context.Background(), address)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	})

	t.Run("rpc error", func(t *testing.T) {
		t.Parallel()
		srv := newRPCServer(t, func(string, []any) any {
			return map[string]any{"jsonrpc": "2.0", "id": 1, "error": map[string]any{"code": -32005, "message": "node is behind"}}
		})

		client, err := ledger.NewRPCClient(ledger.RPCConfig{Endpoint: srv.URL})
		require.NoError(t, err)

		_, err = client.GetAccount(context.Background(), address)
		assert.ErrorIs(t, err, ledger.ErrRPCResponse)
		assert.NotErrorIs(t, err, ledger.ErrAccountNotFound)
	})

	t.Run("endpoint required", func(t *testing.T) {
		t.Parallel()
		_, err := ledger.NewRPCClient(ledger.RPCConfig{})
		assert.ErrorIs(t, err, ledger.ErrMissingEndpoint)
	})
}
