package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for read-only calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Ethereum RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error returned by the node. Data
// carries method-specific payloads such as revert reasons.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// Only safe for idempotent methods.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.callOnce(ctx, method, params, result)
		if err == nil {
			return nil
		}

		// RPC-level errors are definitive answers from the node, not
		// transport failures, and are not retried.
		if _, ok := err.(*RPCError); ok {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// callOnce performs a single JSON-RPC call attempt. State-changing methods
// must go through here directly: resubmitting eth_sendTransaction after a
// transport error could double-spend.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// ClientVersion returns the node's software identifier.
func (c *HTTPClient) ClientVersion(ctx context.Context) (string, error) {
	var result string
	if err := c.call(ctx, "web3_clientVersion", nil, &result); err != nil {
		return "", err
	}
	return result, nil
}

// NetVersion returns the network ID as a decimal string.
func (c *HTTPClient) NetVersion(ctx context.Context) (string, error) {
	var result string
	if err := c.call(ctx, "net_version", nil, &result); err != nil {
		return "", err
	}
	return result, nil
}

// BlockNumber returns the latest block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// Accounts lists the accounts managed by the node.
func (c *HTTPClient) Accounts(ctx context.Context) ([]common.Address, error) {
	var result []common.Address
	if err := c.call(ctx, "eth_accounts", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the wei balance of an address at the latest block.
func (c *HTTPClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	params := []interface{}{addr, "latest"}
	var result hexutil.Big
	if err := c.call(ctx, "eth_getBalance", params, &result); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// NewAccount asks the node to create a managed account protected by the
// passphrase. Sent exactly once.
func (c *HTTPClient) NewAccount(ctx context.Context, passphrase string) (common.Address, error) {
	params := []interface{}{passphrase}
	var result common.Address
	if err := c.callOnce(ctx, "personal_newAccount", params, &result); err != nil {
		return common.Address{}, err
	}
	return result, nil
}

// UnlockAccount unlocks a node-managed account for durationSec seconds.
func (c *HTTPClient) UnlockAccount(ctx context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error) {
	params := []interface{}{addr, passphrase, durationSec}
	var result bool
	if err := c.call(ctx, "personal_unlockAccount", params, &result); err != nil {
		return false, err
	}
	return result, nil
}

// SendTransaction submits a transaction signed by the node. Sent exactly
// once; the caller decides how to handle transport failures.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx TxArgs) (common.Hash, error) {
	params := []interface{}{tx}
	var result common.Hash
	if err := c.callOnce(ctx, "eth_sendTransaction", params, &result); err != nil {
		return common.Hash{}, err
	}
	return result, nil
}

// Call executes a read-only message against the latest block.
func (c *HTTPClient) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	params := []interface{}{msg, "latest"}
	var result hexutil.Bytes
	if err := c.call(ctx, "eth_call", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// TransactionReceipt retrieves the receipt for a mined transaction.
// Returns nil if the transaction is not yet mined.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	params := []interface{}{txHash}
	var result *Receipt
	if err := c.call(ctx, "eth_getTransactionReceipt", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// TransactionByHash retrieves a submitted transaction. Returns nil if the
// node does not know the hash.
func (c *HTTPClient) TransactionByHash(ctx context.Context, txHash common.Hash) (*Transaction, error) {
	params := []interface{}{txHash}
	var result *Transaction
	if err := c.call(ctx, "eth_getTransactionByHash", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
