package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/jsonrpc"
)

const (
	defaultRetries     = 3
	defaultBackoffBase = 200 * time.Millisecond
	defaultBackoffCap  = 5 * time.Second
)

// Caller is the json rpc surface the client needs. It is satisfied by
// *jsonrpc.Client.
type Caller interface {
	Call(method string, out interface{}, params ...interface{}) error
}

type ClientOption func(*Client)

// WithRetries sets how many times a transient failure is retried
func WithRetries(retries uint64) ClientOption {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithBackoff sets the base and cap of the exponential backoff
func WithBackoff(base, cap time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffCap = cap
	}
}

func WithLogger(logger hclog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client reads blocks, receipts and logs of one chain. Every call is retried
// with exponential backoff while it fails with a transient error.
type Client struct {
	caller Caller
	addr   string

	retries     uint64
	backoffBase time.Duration
	backoffCap  time.Duration
	logger      hclog.Logger

	// noBlockReceipts is set once the node rejects eth_getBlockReceipts
	noBlockReceipts atomic.Bool
}

// NewClient dials addr over http or websocket
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	client, err := jsonrpc.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := NewClientWithCaller(client, opts...)
	c.addr = addr

	return c, nil
}

// NewClientWithCaller wraps an existing json rpc caller
func NewClientWithCaller(caller Caller, opts ...ClientOption) *Client {
	c := &Client{
		caller:      caller,
		retries:     defaultRetries,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
		logger:      hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close closes the underlying connection when it holds one
func (c *Client) Close() error {
	if closer, ok := c.caller.(interface{ Close() error }); ok {
		return closer.Close()
	}

	return nil
}

func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	backoff := retry.NewExponential(c.backoffBase)
	backoff = retry.WithMaxRetries(c.retries, retry.WithCappedDuration(c.backoffCap, backoff))

	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt++

		err := c.caller.Call(method, out, params...)
		if err != nil && IsTransient(err) {
			c.logger.Debug("transient rpc error", "method", method, "attempt", attempt, "err", err)

			return retry.RetryableError(err)
		}

		return err
	})
}

// callRaw returns the raw result, ErrNotFound when it is null
func (c *Client) callRaw(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	var raw json.RawMessage

	if err := c.call(ctx, method, &raw, params...); err != nil {
		return nil, err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, method, params)
	}

	return raw, nil
}

// ChainID returns the eth_chainId of the node
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var out string
	if err := c.call(ctx, "eth_chainId", &out); err != nil {
		return 0, err
	}

	return hex.DecodeUint64(out)
}

// HeadNumber returns the latest block number
func (c *Client) HeadNumber(ctx context.Context) (uint64, error) {
	var out string
	if err := c.call(ctx, "eth_blockNumber", &out); err != nil {
		return 0, err
	}

	return hex.DecodeUint64(out)
}

// HeaderByNumber returns the header of a block with every fork field the node reports
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	raw, err := c.callRaw(ctx, "eth_getBlockByNumber", ethgo.BlockNumber(number).String(), false)
	if err != nil {
		return nil, err
	}

	header := new(types.Header)
	if err := header.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to decode header %d: %w", number, err)
	}

	return header, nil
}

// TransactionReceipt returns the receipt of txHash
func (c *Client) TransactionReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	raw, err := c.callRaw(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}

	receipt := new(types.Receipt)
	if err := receipt.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to decode receipt %s: %w", txHash, err)
	}

	return receipt, nil
}

// BlockReceipts returns every receipt of a block in transaction order.
// Nodes without eth_getBlockReceipts are served one receipt per transaction.
func (c *Client) BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error) {
	if !c.noBlockReceipts.Load() {
		raw, err := c.callRaw(ctx, "eth_getBlockReceipts", ethgo.BlockNumber(number).String())
		if err == nil {
			return types.UnmarshalReceiptsJSON(raw)
		}

		if !isMethodNotFound(err) {
			return nil, err
		}

		c.logger.Info("eth_getBlockReceipts not supported, falling back to eth_getTransactionReceipt")
		c.noBlockReceipts.Store(true)
	}

	var block struct {
		Transactions []types.Hash `json:"transactions"`
	}

	if err := c.call(ctx, "eth_getBlockByNumber", &block, ethgo.BlockNumber(number).String(), false); err != nil {
		return nil, err
	}

	receipts := make([]*types.Receipt, len(block.Transactions))

	for i, txHash := range block.Transactions {
		receipt, err := c.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}

		receipts[i] = receipt
	}

	return receipts, nil
}

// GetLogs returns the logs matching filter
func (c *Client) GetLogs(ctx context.Context, filter *ethgo.LogFilter) ([]*ethgo.Log, error) {
	var logs []*ethgo.Log
	if err := c.call(ctx, "eth_getLogs", &logs, filter); err != nil {
		return nil, err
	}

	return logs, nil
}

// Call executes an eth_call against the latest block and returns the output
func (c *Client) Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error) {
	msg := &ethgo.CallMsg{
		From: from.ToEthgo(),
		To:   (*ethgo.Address)(&to),
		Data: input,
	}

	var out string
	if err := c.call(ctx, "eth_call", &out, msg, ethgo.Latest.String()); err != nil {
		return nil, err
	}

	return hex.DecodeHex(out)
}

func isMethodNotFound(err error) bool {
	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "method not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not supported")
}
