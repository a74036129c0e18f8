package txrelayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/jsonrpc"
	"github.com/umbracle/ethgo/wallet"
)

const (
	defaultGasLimit       = 5242880 // 0x500000
	gasLimitPercentage    = 120
	defaultReceiptTimeout = 60 * time.Second
	defaultPollFreq       = time.Second
)

var (
	errNoAccounts     = errors.New("no accounts registered")
	errReceiptTimeout = errors.New("timeout while waiting for transaction to be mined")
)

// EthClient is the subset of eth_ methods the relayer sends transactions
// through. It is satisfied by *jsonrpc.Eth.
type EthClient interface {
	Accounts() ([]ethgo.Address, error)
	GetNonce(addr ethgo.Address, blockNumber ethgo.BlockNumberOrHash) (uint64, error)
	ChainID() (*big.Int, error)
	GasPrice() (uint64, error)
	EstimateGas(msg *ethgo.CallMsg) (uint64, error)
	SendRawTransaction(data []byte) (ethgo.Hash, error)
	SendTransaction(txn *ethgo.Transaction) (ethgo.Hash, error)
	GetTransactionReceipt(hash ethgo.Hash) (*ethgo.Receipt, error)
	Call(msg *ethgo.CallMsg, block ethgo.BlockNumber, override ...*ethgo.StateOverride) (string, error)
}

// TxRelayer signs transactions, sends them and waits for their receipts
type TxRelayer interface {
	Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error)
	SendTransaction(ctx context.Context, txn *ethgo.Transaction, key ethgo.Key) (*ethgo.Receipt, error)
	SendTransactionLocal(ctx context.Context, txn *ethgo.Transaction) (*ethgo.Receipt, error)
}

var _ TxRelayer = (*TxRelayerImpl)(nil)

type TxRelayerImpl struct {
	ipAddress      string
	client         EthClient
	receiptTimeout time.Duration
	pollFreq       time.Duration
	logger         hclog.Logger
}

func NewTxRelayer(opts ...TxRelayerOption) (*TxRelayerImpl, error) {
	t := &TxRelayerImpl{
		ipAddress:      "http://127.0.0.1:8545",
		receiptTimeout: defaultReceiptTimeout,
		pollFreq:       defaultPollFreq,
		logger:         hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		client, err := jsonrpc.NewClient(t.ipAddress)
		if err != nil {
			return nil, err
		}

		t.client = client.Eth()
	}

	return t, nil
}

// Call executes a message call against the latest block and returns its output
func (t *TxRelayerImpl) Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callMsg := &ethgo.CallMsg{
		From: from.ToEthgo(),
		To:   (*ethgo.Address)(&to),
		Data: input,
	}

	out, err := t.client.Call(callMsg, ethgo.Latest)
	if err != nil {
		return nil, err
	}

	return hex.DecodeHex(out)
}

// SendTransaction signs txn with key, sends it and waits for its receipt
func (t *TxRelayerImpl) SendTransaction(ctx context.Context, txn *ethgo.Transaction, key ethgo.Key) (*ethgo.Receipt, error) {
	txnHash, err := t.sendTransaction(txn, key)
	if err != nil {
		return nil, err
	}

	return t.waitForReceipt(ctx, txnHash)
}

func (t *TxRelayerImpl) sendTransaction(txn *ethgo.Transaction, key ethgo.Key) (ethgo.Hash, error) {
	nonce, err := t.client.GetNonce(key.Address(), ethgo.Pending)
	if err != nil {
		return ethgo.ZeroHash, fmt.Errorf("failed to get nonce: %w", err)
	}

	chainID, err := t.client.ChainID()
	if err != nil {
		return ethgo.ZeroHash, err
	}

	gasPrice, err := t.client.GasPrice()
	if err != nil {
		return ethgo.ZeroHash, err
	}

	txn.GasPrice = gasPrice
	txn.Nonce = nonce
	txn.From = key.Address()

	if txn.Gas == 0 {
		gasLimit, err := t.client.EstimateGas(ConvertTxnToCallMsg(txn))
		if err != nil {
			t.logger.Debug("gas estimation failed, using the default gas limit", "err", err)

			gasLimit = defaultGasLimit
		}

		txn.Gas = gasLimit * gasLimitPercentage / 100
	}

	signer := wallet.NewEIP155Signer(chainID.Uint64())
	if txn, err = signer.SignTx(txn, key); err != nil {
		return ethgo.ZeroHash, err
	}

	data, err := txn.MarshalRLPTo(nil)
	if err != nil {
		return ethgo.ZeroHash, err
	}

	hash, err := t.client.SendRawTransaction(data)
	if err != nil {
		return ethgo.ZeroHash, err
	}

	t.logger.Debug("transaction sent", "hash", hash, "nonce", nonce, "to", txn.To)

	return hash, nil
}

// SendTransactionLocal sends txn from the first account of eth_accounts.
// Only dev nodes unlock such an account.
func (t *TxRelayerImpl) SendTransactionLocal(ctx context.Context, txn *ethgo.Transaction) (*ethgo.Receipt, error) {
	accounts, err := t.client.Accounts()
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, errNoAccounts
	}

	txn.From = accounts[0]

	if txn.Gas == 0 {
		gasLimit, err := t.client.EstimateGas(ConvertTxnToCallMsg(txn))
		if err != nil {
			return nil, err
		}

		txn.Gas = gasLimit
	}

	txnHash, err := t.client.SendTransaction(txn)
	if err != nil {
		return nil, err
	}

	return t.waitForReceipt(ctx, txnHash)
}

func (t *TxRelayerImpl) waitForReceipt(ctx context.Context, hash ethgo.Hash) (*ethgo.Receipt, error) {
	timer := time.NewTimer(t.receiptTimeout)
	defer timer.Stop()

	ticker := time.NewTicker(t.pollFreq)
	defer ticker.Stop()

	for {
		receipt, err := t.client.GetTransactionReceipt(hash)
		if err != nil && !strings.Contains(err.Error(), "not found") {
			return nil, err
		}

		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w: %s", errReceiptTimeout, hash)
		case <-ticker.C:
		}
	}
}

// ConvertTxnToCallMsg converts txn instance to call message
func ConvertTxnToCallMsg(txn *ethgo.Transaction) *ethgo.CallMsg {
	return &ethgo.CallMsg{
		From:     txn.From,
		To:       txn.To,
		Data:     txn.Input,
		GasPrice: txn.GasPrice,
		Value:    txn.Value,
	}
}

type TxRelayerOption func(*TxRelayerImpl)

func WithIPAddress(ipAddress string) TxRelayerOption {
	return func(t *TxRelayerImpl) {
		t.ipAddress = ipAddress
	}
}

func WithClient(client EthClient) TxRelayerOption {
	return func(t *TxRelayerImpl) {
		t.client = client
	}
}

func WithReceiptTimeout(timeout time.Duration) TxRelayerOption {
	return func(t *TxRelayerImpl) {
		t.receiptTimeout = timeout
	}
}

func WithPollFrequency(freq time.Duration) TxRelayerOption {
	return func(t *TxRelayerImpl) {
		t.pollFreq = freq
	}
}

func WithLogger(logger hclog.Logger) TxRelayerOption {
	return func(t *TxRelayerImpl) {
		t.logger = logger.Named("txrelayer")
	}
}
