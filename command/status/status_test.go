package status

import (
	"testing"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sender = types.StringToAddress("0x2000000000000000000000000000000000000002")

func TestStatus(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{config.DBBackendBolt, config.DBBackendLevelDB} {
		dataDir := t.TempDir()

		id, err := contractsapi.EventID(100, sender, 9)
		require.NoError(t, err)

		set, err := helper.OpenProcessedSet(backend, dataDir)
		require.NoError(t, err)

		_, err = set.Insert(id, &verifier.Record{Received: true, Sender: sender, SourceBlockNumber: 9})
		require.NoError(t, err)
		require.NoError(t, set.Close())

		byPing := &statusParams{
			chainID:     100,
			rawSender:   sender.String(),
			blockNumber: 9,
			dbBackend:   backend,
			dataDir:     dataDir,
		}
		require.NoError(t, byPing.validateFlags())
		assert.Equal(t, id, byPing.eventID)

		result, err := status(byPing)
		require.NoError(t, err, backend)
		assert.True(t, result.Received)
		assert.Equal(t, sender, result.Sender)
		assert.Contains(t, result.GetOutput(), "Source block number = 9")

		unknown := &statusParams{
			rawEventID: types.StringToHash("0x01").String(),
			dbBackend:  backend,
			dataDir:    dataDir,
		}
		require.NoError(t, unknown.validateFlags())

		result, err = status(unknown)
		require.NoError(t, err)
		assert.False(t, result.Received)
		assert.NotContains(t, result.GetOutput(), "Sender")
	}
}

func TestValidateFlags(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&statusParams{dbBackend: config.DBBackendMemory}).validateFlags(), errPersistentBackend)
	require.ErrorIs(t, (&statusParams{dbBackend: config.DBBackendBolt}).validateFlags(), errNoEvent)
	require.Error(t, (&statusParams{dbBackend: config.DBBackendBolt, chainID: 1, rawSender: "0x12"}).validateFlags())
}
