package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const testOperatorKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

// newStuckChainServer serves a JSON-RPC node that accepts submitted
// transactions but never reports a receipt for them.
func newStuckChainServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Id     json.RawMessage `json:"id"`
				Method string          `json:"method"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			var result string
			switch req.Method {
			case "eth_getTransactionCount":
				result = `"0x0"`
			case "eth_gasPrice":
				result = `"0x3b9aca00"`
			case "eth_sendRawTransaction":
				result = `"0x` + strings.Repeat("ab", 32) + `"`
			default:
				result = "null"
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(
				w, `{"jsonrpc":"2.0","id":%s,"result":%s}`,
				string(req.Id), result,
			)
		},
	))
	t.Cleanup(server.Close)
	return server
}

func TestExecuteContractCallConfirmationTimeout(t *testing.T) {
	t.Parallel()

	server := newStuckChainServer(t)
	svc, err := NewSettlementService(
		[]ChainConfig{{
			ChainId:            1,
			RPCUrl:             server.URL,
			SettlementContract: "0x00000000000000000000000000000000000000aa",
		}},
		testOperatorKey,
		time.Second,
	)
	require.NoError(t, err)

	permit := ports.PermitParams{
		Owner:    "0x00000000000000000000000000000000000000bb",
		Amount:   big.NewInt(1000),
		Deadline: big.NewInt(time.Now().Add(time.Hour).Unix()),
	}

	start := time.Now()
	_, err = svc.ExecuteContractCall(context.Background(), "quote-1", permit, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out waiting for confirmation of tx")
	// The wait is bounded by the configured timeout, not the poll cadence.
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestNewSettlementServiceRejectsBadKey(t *testing.T) {
	t.Parallel()

	_, err := NewSettlementService(nil, "not-a-key", time.Second)
	require.Error(t, err)
}
