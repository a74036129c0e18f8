package helper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatKV(t *testing.T) {
	t.Parallel()

	out := FormatKV([]string{"Event ID|0x01", "Sender|"})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Event ID = 0x01")
	assert.Contains(t, lines[1], "<none>")
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "relayer.log")

	logger, closer, err := NewLogger("proof-relay", "INFO", true, logFile)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("relayer started", "workers", 4)
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), `"@message":"relayer started"`)
	assert.Contains(t, string(content), `"workers":4`)
}

func TestOpenProcessedSet(t *testing.T) {
	t.Parallel()

	id := types.StringToHash("0x01")

	for _, backend := range []string{config.DBBackendMemory, config.DBBackendBolt, config.DBBackendLevelDB} {
		dataDir := t.TempDir()

		set, err := OpenProcessedSet(backend, dataDir)
		require.NoError(t, err, backend)

		inserted, err := set.Insert(id, &verifier.Record{Received: true})
		require.NoError(t, err)
		assert.True(t, inserted)
		require.NoError(t, set.Close())
	}

	_, err := OpenProcessedSet("badger", t.TempDir())
	require.ErrorContains(t, err, "unknown db backend")
}

func TestParseAddressAndHash(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5")
	require.NoError(t, err)
	assert.Equal(t, types.StringToAddress("0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5"), addr)

	_, err = ParseAddress("0x1234")
	require.Error(t, err)

	_, err = ParseHash("0xzz")
	require.Error(t, err)
}
