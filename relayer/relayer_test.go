package relayer

import (
	"context"
	"testing"
	"time"

	"github.com/0xPolygon/proof-relay/helper/tests"
	"github.com/0xPolygon/proof-relay/tracker"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayer_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	local := newLocalVerifier()

	destination := tests.NewChain(200)
	store := tracker.NewMemoryCursorStore()

	r, err := NewRelayer(Config{
		Coordinator: CoordinatorConfig{
			ChainID:         testChainID,
			Emitter:         emitter,
			RecheckInterval: tick,
		},
		TrustAdapter: adapter,
		PollInterval: 20 * time.Millisecond,
		Lookback:     100,
		BatchSize:    2,
	}, f.chain, destination, local.submitter, nil, store, hclog.NewNullLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- r.Start(ctx)
	}()

	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool {
		job, ok := r.Coordinator().Job(f.eventID)

		return ok && job.Stage == StageAwaitingHeader
	}, waitFor, tick)

	// the oracle anchors the ping block and the adapter announces it
	local.oracle.Store(testChainID, f.header.Number, f.header.Hash())
	destination.AddBlock(tests.NewReceipt(types.DynamicFeeTx, tests.HashStoredLog(adapter, f.header.Number, f.header.Hash())))

	require.Eventually(t, func() bool {
		job, ok := r.Coordinator().Job(f.eventID)

		return ok && job.Stage == StageConfirmed
	}, waitFor, tick)

	cursor, found, err := store.Cursor(pingPollerName)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, f.header.Number, cursor)

	_, found, err = store.Cursor(anchorPollerName)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNewRelayer_RequiresAnchorSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := NewRelayer(Config{}, f.chain, nil, new(submitterMock), nil, tracker.NewMemoryCursorStore(), hclog.NewNullLogger())
	require.Error(t, err)
}
