package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/agritrace/internal/config"
)

// CodeUserRejected is the EIP-1193 error code emitted when the human
// declines a wallet prompt.
const CodeUserRejected = 4001

// Client exposes the signing-agent JSON-RPC operations used by the
// application. Writes are signed by the agent; reads pass through to
// the node it fronts.
type Client interface {
	ClientVersion(ctx context.Context) (string, error)
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, tx TxArgs) (string, error)
	CallContract(ctx context.Context, to string, data string) (string, error)
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// TxArgs is the eth_sendTransaction parameter object. Gas and value are
// left to the agent to fill.
type TxArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

// Log is one emitted event entry from a confirmed transaction.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt is the confirmation record of a mined transaction.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	Logs            []Log  `json:"logs"`
}

// RPCError is a JSON-RPC error object returned by the agent. Code 4001
// means the user rejected the prompt.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	nextID     atomic.Uint64
}

// NewClient builds a provider client from the chain configuration.
func NewClient(cfg config.ChainConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.ProviderURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// Call performs one JSON-RPC round trip and unmarshals the result into
// out when out is non-nil. A *RPCError is returned as-is so callers can
// inspect the code.
func (c *APIClient) Call(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	envelope := new(rpcResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(envelope).
		Post("")
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("call %s: agent returned status %d", method, resp.StatusCode())
	}

	if envelope.Error != nil {
		return envelope.Error
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}

	return nil
}

// ClientVersion probes the agent for its software version. Used as the
// capability check before any prompt is raised.
func (c *APIClient) ClientVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.Call(ctx, &version, "web3_clientVersion"); err != nil {
		return "", err
	}
	return version, nil
}

// RequestAccounts asks the agent to expose an identity, raising a user
// prompt when no authorization exists yet.
func (c *APIClient) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns already-authorized identities without prompting.
func (c *APIClient) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID returns the hex-encoded id of the chain the agent is on.
func (c *APIClient) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := c.Call(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return id, nil
}

// SendTransaction submits a write for signing and broadcast, returning
// the transaction hash.
func (c *APIClient) SendTransaction(ctx context.Context, tx TxArgs) (string, error) {
	var hash string
	if err := c.Call(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return "", err
	}
	return hash, nil
}

// CallContract performs a read-only eth_call against the latest block.
func (c *APIClient) CallContract(ctx context.Context, to string, data string) (string, error) {
	var out string
	params := map[string]string{"to": to, "data": data}
	if err := c.Call(ctx, &out, "eth_call", params, "latest"); err != nil {
		return "", err
	}
	return out, nil
}

// TransactionReceipt looks up the receipt for a submitted transaction.
// A nil receipt with nil error means the transaction is still pending.
func (c *APIClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	receipt := new(Receipt)
	var raw json.RawMessage
	if err := c.Call(ctx, &raw, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(raw, receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}
