package verifier

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/helper/tests"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	emitter = types.StringToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	sender  = types.StringToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
)

type fixture struct {
	chain    *tests.Chain
	header   *types.Header
	receipts []*types.Receipt
	proof    *proof.Proof
	oracle   *MemoryOracle
}

// newFixture seals a block with three mixed receipts. The ping is log 0 of
// transaction 1 and the proof for it is generated.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	chain := tests.NewChain(100)

	receipts := []*types.Receipt{
		tests.NewReceipt(types.LegacyTx, &types.Log{Address: emitter, Data: []byte{0x01}}),
		tests.NewReceipt(types.DynamicFeeTx, tests.PingLog(emitter, sender, 1)),
		tests.NewReceipt(types.AccessListTx),
	}
	receipts[2].SetStatus(types.ReceiptFailed)

	header := chain.AddBlock(receipts...)

	p, err := proof.NewGenerator(chain, chain.ChainID()).Generate(context.Background(), receipts[1].TxHash, 0)
	require.NoError(t, err)

	return &fixture{
		chain:    chain,
		header:   header,
		receipts: receipts,
		proof:    p,
		oracle:   NewMemoryOracle(),
	}
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	set := NewMemoryProcessedSet()
	v := NewVerifier(f.oracle, set, WithEmitter(emitter))

	log, id, err := v.Verify(f.proof, f.header.Hash())
	require.NoError(t, err)

	assert.Equal(t, f.receipts[1].Logs[0], log)

	expectedID, err := contractsapi.EventID(100, sender, 1)
	require.NoError(t, err)
	assert.Equal(t, expectedID, id)

	status, err := v.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &Record{Received: true, Sender: sender, SourceBlockNumber: 1}, status)

	unknown, err := v.Status(context.Background(), types.StringToHash("0x01"))
	require.NoError(t, err)
	assert.False(t, unknown.Received)
}

func TestVerifier_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	set := NewMemoryProcessedSet()
	v := NewVerifier(f.oracle, set)

	_, id, err := v.Verify(f.proof, f.header.Hash())
	require.NoError(t, err)

	_, dupID, err := v.Verify(f.proof, f.header.Hash())
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, id, dupID)

	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVerifier_ConcurrentVerifications(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	set := NewMemoryProcessedSet()
	v := NewVerifier(f.oracle, set)

	var (
		wg         sync.WaitGroup
		winners    int32
		duplicates int32
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := v.Verify(f.proof.Copy(), f.header.Hash())
			if err == nil {
				atomic.AddInt32(&winners, 1)
			} else if assert.ErrorIs(t, err, ErrAlreadyProcessed) {
				atomic.AddInt32(&duplicates, 1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners)
	assert.Equal(t, int32(15), duplicates)

	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVerifier_Tampering(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	trusted := f.header.Hash()

	t.Run("header bytes", func(t *testing.T) {
		t.Parallel()

		for i := range f.proof.BlockHeader {
			p := f.proof.Copy()
			p.BlockHeader[i] ^= 0x01

			set := NewMemoryProcessedSet()

			_, _, err := NewVerifier(f.oracle, set).Verify(p, trusted)
			require.ErrorIs(t, err, ErrInvalidProof, "byte %d", i)

			n, _ := set.Len()
			require.Zero(t, n)
		}
	})

	t.Run("proof node bytes", func(t *testing.T) {
		t.Parallel()

		for i, node := range f.proof.ReceiptProof {
			for j := range node {
				p := f.proof.Copy()
				p.ReceiptProof[i][j] ^= 0x80

				_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, trusted)
				require.ErrorIs(t, err, ErrInvalidProof, "node %d byte %d", i, j)
			}
		}
	})

	t.Run("log index", func(t *testing.T) {
		t.Parallel()

		p := f.proof.Copy()
		p.LogIndex = 1

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, trusted)
		require.ErrorIs(t, err, ErrInvalidEventFormat)
	})

	t.Run("transaction index", func(t *testing.T) {
		t.Parallel()

		p := f.proof.Copy()
		p.TxIndex = types.EncodeTxIndex(2)

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, trusted)
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("block number", func(t *testing.T) {
		t.Parallel()

		p := f.proof.Copy()
		p.BlockNumber++

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, trusted)
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("wrong trusted hash", func(t *testing.T) {
		t.Parallel()

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(f.proof, f.header.ParentHash)
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("missing node", func(t *testing.T) {
		t.Parallel()

		p := f.proof.Copy()
		p.ReceiptProof = p.ReceiptProof[:len(p.ReceiptProof)-1]

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, trusted)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
}

func TestVerifier_InvalidEvents(t *testing.T) {
	t.Parallel()

	chain := tests.NewChain(7)

	badSender := tests.PingLog(emitter, sender, 3)
	badSender.Topics[1][0] = 0x01

	hugeBlock := tests.PingLog(emitter, sender, 3)
	hugeBlock.Topics[2][0] = 0x01

	withData := tests.PingLog(emitter, sender, 3)
	withData.Data = []byte{0x01}

	twoTopics := tests.PingLog(emitter, sender, 3)
	twoTopics.Topics = twoTopics.Topics[:2]

	otherEvent := tests.PingLog(emitter, sender, 3)
	otherEvent.Topics[0] = types.StringToHash("0x1234")

	otherEmitter := tests.PingLog(types.StringToAddress("0x01"), sender, 3)

	cases := map[string]*types.Log{
		"sender upper bytes": badSender,
		"block number width": hugeBlock,
		"non empty data":     withData,
		"two topics":         twoTopics,
		"unexpected event":   otherEvent,
		"unexpected emitter": otherEmitter,
	}

	for name, log := range cases {
		receipt := tests.NewReceipt(types.DynamicFeeTx, log)
		header := chain.AddBlock(receipt)

		p, err := proof.NewGenerator(chain, 7).Generate(context.Background(), receipt.TxHash, 0)
		require.NoError(t, err, name)

		_, _, err = NewVerifier(NewMemoryOracle(), NewMemoryProcessedSet(), WithEmitter(emitter)).Verify(p, header.Hash())
		require.ErrorIs(t, err, ErrInvalidEventFormat, name)
	}
}

func TestVerifier_Receive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	v := NewVerifier(f.oracle, NewMemoryProcessedSet())

	_, err := v.Receive(context.Background(), f.proof)
	require.ErrorIs(t, err, ErrTrustedHashUnavailable)
	assert.True(t, IsUnavailable(err))

	f.oracle.Store(100, f.header.Number, f.header.Hash())

	rec, err := v.ReceiveEncoded(context.Background(), f.proof.MarshalRLP())
	require.NoError(t, err)
	assert.Equal(t, sender, rec.Sender)
	assert.Equal(t, uint64(1), rec.SourceBlockNumber)

	_, err = v.Receive(context.Background(), f.proof)
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	_, err = v.ReceiveEncoded(context.Background(), []byte{0xc0})
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestVerifier_AncestralHeaders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chain.AddEmptyBlocks(3)

	target := f.header.Number
	anchor := target + 3

	withAncestors := func() *proof.Proof {
		p := f.proof.Copy()
		p.AncestralBlockNumber = anchor

		for n := anchor; n > target; n-- {
			p.AncestralBlockHeaders = append(p.AncestralBlockHeaders, f.chain.Header(n).MarshalRLP())
		}

		return p
	}

	f.oracle.Store(100, anchor, f.chain.Header(anchor).Hash())

	_, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Receive(context.Background(), withAncestors())
	require.NoError(t, err)

	t.Run("gap in the chain", func(t *testing.T) {
		p := withAncestors()
		p.AncestralBlockHeaders = append(p.AncestralBlockHeaders[:1], p.AncestralBlockHeaders[2:]...)
		p.AncestralBlockNumber--

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, f.chain.Header(anchor).Hash())
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("wrong ancestral number", func(t *testing.T) {
		p := withAncestors()
		p.AncestralBlockNumber++

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, f.chain.Header(anchor).Hash())
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("zero ancestral number", func(t *testing.T) {
		p := withAncestors()
		p.AncestralBlockNumber = 0

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, f.chain.Header(anchor).Hash())
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("ancestral number without headers", func(t *testing.T) {
		p := f.proof.Copy()
		p.AncestralBlockNumber = anchor

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, f.header.Hash())
		require.ErrorIs(t, err, ErrInvalidProof)
	})

	t.Run("tampered ancestor", func(t *testing.T) {
		p := withAncestors()
		p.AncestralBlockHeaders[1][5] ^= 0x01

		_, _, err := NewVerifier(f.oracle, NewMemoryProcessedSet()).Verify(p, f.chain.Header(anchor).Hash())
		require.ErrorIs(t, err, ErrInvalidProof)
	})
}
