package relayer

import (
	"context"
	"errors"
	"testing"

	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/wallet"
)

type txRelayerMock struct {
	mock.Mock
}

func (t *txRelayerMock) Call(_ context.Context, from types.Address, to types.Address, input []byte) ([]byte, error) {
	args := t.Called(from, to, input)

	out, _ := args.Get(0).([]byte)

	return out, args.Error(1)
}

func (t *txRelayerMock) SendTransaction(_ context.Context, txn *ethgo.Transaction, key ethgo.Key) (*ethgo.Receipt, error) {
	args := t.Called(txn, key)

	receipt, _ := args.Get(0).(*ethgo.Receipt)

	return receipt, args.Error(1)
}

func (t *txRelayerMock) SendTransactionLocal(_ context.Context, txn *ethgo.Transaction) (*ethgo.Receipt, error) {
	args := t.Called(txn)

	receipt, _ := args.Get(0).(*ethgo.Receipt)

	return receipt, args.Error(1)
}

func newChainSubmitter(t *testing.T) (*ChainSubmitter, *txRelayerMock, *proof.Proof, []byte) {
	t.Helper()

	key, err := wallet.GenerateKey()
	require.NoError(t, err)

	relayer := new(txRelayerMock)
	submitter := NewChainSubmitter(relayer, adapter, key, hclog.NewNullLogger())

	p := proof.Pack(testChainID, 7, []byte{0xc0}, [][]byte{{0xc1, 0x80}}, 0, 0)

	input, err := p.EncodeAbi()
	require.NoError(t, err)

	return submitter, relayer, p, input
}

func TestChainSubmitter_Submit(t *testing.T) {
	t.Parallel()

	submitter, relayer, p, input := newChainSubmitter(t)
	from := types.Address(submitter.key.Address())

	relayer.On("Call", from, adapter, input).Return([]byte{}, nil).Once()
	relayer.On("SendTransaction", mock.MatchedBy(func(txn *ethgo.Transaction) bool {
		return txn.To != nil && *txn.To == adapter.ToEthgo() && string(txn.Input) == string(input)
	}), submitter.key).Return(&ethgo.Receipt{Status: uint64(types.ReceiptSuccess)}, nil).Once()

	require.NoError(t, submitter.Submit(context.Background(), p))
	relayer.AssertExpectations(t)
}

func TestChainSubmitter_PreflightReverts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reason   string
		expected error
	}{
		{"execution reverted: Receiver: already processed", verifier.ErrAlreadyProcessed},
		{"execution reverted: trusted hash unavailable", verifier.ErrTrustedHashUnavailable},
		{"execution reverted: invalid proof", verifier.ErrInvalidProof},
		{"execution reverted: invalid event", verifier.ErrInvalidEventFormat},
		{"execution reverted", errReverted},
	}

	for _, c := range cases {
		submitter, relayer, p, _ := newChainSubmitter(t)

		relayer.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New(c.reason))

		err := submitter.Submit(context.Background(), p)
		require.ErrorIs(t, err, c.expected, c.reason)
		relayer.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	}
}

func TestChainSubmitter_NetworkErrorUnchanged(t *testing.T) {
	t.Parallel()

	submitter, relayer, p, _ := newChainSubmitter(t)

	netErr := errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	relayer.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(nil, netErr)

	require.Equal(t, netErr, submitter.Submit(context.Background(), p))
}

func TestChainSubmitter_FailedReceipt(t *testing.T) {
	t.Parallel()

	t.Run("lost race", func(t *testing.T) {
		t.Parallel()

		submitter, relayer, p, _ := newChainSubmitter(t)

		relayer.On("Call", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil).Once()
		relayer.On("SendTransaction", mock.Anything, mock.Anything).
			Return(&ethgo.Receipt{Status: uint64(types.ReceiptFailed)}, nil).Once()
		relayer.On("Call", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("execution reverted: already processed")).Once()

		require.ErrorIs(t, submitter.Submit(context.Background(), p), verifier.ErrAlreadyProcessed)
		relayer.AssertNumberOfCalls(t, "Call", 2)
	})

	t.Run("no reason", func(t *testing.T) {
		t.Parallel()

		submitter, relayer, p, _ := newChainSubmitter(t)

		relayer.On("Call", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)
		relayer.On("SendTransaction", mock.Anything, mock.Anything).
			Return(&ethgo.Receipt{Status: uint64(types.ReceiptFailed)}, nil)

		require.ErrorIs(t, submitter.Submit(context.Background(), p), errTxFailed)
	})
}

func TestLocalSubmitter_Submit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	local := newLocalVerifier()

	p, err := proof.NewGenerator(f.chain, testChainID).
		GenerateForBlockLog(context.Background(), types.Hash(f.pings.Logs[0].TransactionHash), 0)
	require.NoError(t, err)

	require.ErrorIs(t, local.submitter.Submit(context.Background(), p), verifier.ErrTrustedHashUnavailable)

	local.oracle.Store(testChainID, f.header.Number, f.header.Hash())

	require.NoError(t, local.submitter.Submit(context.Background(), p))
	assert.ErrorIs(t, local.submitter.Submit(context.Background(), p), verifier.ErrAlreadyProcessed)
}
