package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agritrace/internal/config"
)

// newRPCServer returns a client wired to an httptest endpoint that
// answers each JSON-RPC method with the supplied handler.
func newRPCServer(t *testing.T, handle func(method string, params []json.RawMessage) (any, *RPCError)) (*APIClient, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.ChainConfig{ProviderURL: srv.URL})
	return client, srv
}

func TestTypedCalls(t *testing.T) {
	client, _ := newRPCServer(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		switch method {
		case "web3_clientVersion":
			return "Geth/v1.14.0", nil
		case "eth_accounts":
			return []string{"0xabc"}, nil
		case "eth_chainId":
			return "0x1", nil
		default:
			return nil, &RPCError{Code: -32601, Message: "method not found"}
		}
	})

	version, err := client.ClientVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Geth/v1.14.0", version)

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, accounts)

	chainID, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x1", chainID)
}

func TestRPCErrorIsTyped(t *testing.T) {
	client, _ := newRPCServer(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: CodeUserRejected, Message: "User denied account authorization"}
	})

	_, err := client.RequestAccounts(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeUserRejected, rpcErr.Code)
}

func TestSendTransactionPassesArgs(t *testing.T) {
	var seen TxArgs
	client, _ := newRPCServer(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		require.Equal(t, "eth_sendTransaction", method)
		require.Len(t, params, 1)
		require.NoError(t, json.Unmarshal(params[0], &seen))
		return "0xdeadbeef", nil
	})

	hash, err := client.SendTransaction(context.Background(), TxArgs{
		From: "0xfrom", To: "0xto", Data: "0x1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", hash)
	assert.Equal(t, "0xfrom", seen.From)
	assert.Equal(t, "0xto", seen.To)
	assert.Equal(t, "0x1234", seen.Data)
}

func TestPendingReceiptIsNil(t *testing.T) {
	mined := false
	client, _ := newRPCServer(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		if !mined {
			return nil, nil
		}
		return map[string]any{
			"transactionHash": "0xdeadbeef",
			"blockNumber":     "0x10",
			"status":          "0x1",
			"logs": []map[string]any{
				{"topics": []string{"0xsig", "0xbatch"}, "data": "0x"},
			},
		}, nil
	})

	receipt, err := client.TransactionReceipt(context.Background(), "0xdeadbeef")
	require.NoError(t, err)
	assert.Nil(t, receipt)

	mined = true
	receipt, err = client.TransactionReceipt(context.Background(), "0xdeadbeef")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "0xdeadbeef", receipt.TransactionHash)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, []string{"0xsig", "0xbatch"}, receipt.Logs[0].Topics)
}

func TestTransportFailure(t *testing.T) {
	client, srv := newRPCServer(t, func(method string, params []json.RawMessage) (any, *RPCError) {
		return nil, nil
	})
	srv.Close()

	_, err := client.ClientVersion(context.Background())
	assert.Error(t, err)
}
