package relayer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/relayer"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()

	params = &relayerParams{rawConfig: config.DefaultConfig()}

	cmd := &cobra.Command{Use: "relayer"}
	setFlags(cmd)

	return cmd
}

func TestRunPreRun_FlagsOverrideFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "relayer.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
source:
  rpc_url: http://source:8545
destination:
  rpc_url: http://destination:8545
ping_sender: "0x1000000000000000000000000000000000000001"
trust_adapter: "0x2000000000000000000000000000000000000002"
submitter: local
db_backend: memory
workers: 2
`), 0600))

	cmd := newTestCommand(t)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", configPath,
		"--source-rpc", "http://override:8545",
		"--workers", "8",
	}))

	require.NoError(t, runPreRun(cmd, nil))

	c := params.rawConfig
	assert.Equal(t, "http://override:8545", c.Source.RPCURL)
	assert.Equal(t, "http://destination:8545", c.Destination.RPCURL)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, config.SubmitterLocal, c.Submitter)
	assert.Equal(t, config.DBBackendMemory, c.DBBackend)
	assert.Equal(t, config.DefaultLookback, c.Lookback)
}

func TestRunPreRun_Invalid(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.ParseFlags([]string{"--submitter", "chain"}))

	err := runPreRun(cmd, nil)
	require.ErrorContains(t, err, "ping_sender")
	require.ErrorContains(t, err, "private_key")
}

func TestLoadKey(t *testing.T) {
	t.Parallel()

	key, created, err := loadKey(&config.Config{PrivateKey: testKey})
	require.NoError(t, err)
	assert.False(t, created)

	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte(testKey+"\n"), 0600))

	fromFile, created, err := loadKey(&config.Config{PrivateKeyFile: keyFile})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, key.Address(), fromFile.Address())

	_, created, err = loadKey(&config.Config{PrivateKeyFile: filepath.Join(t.TempDir(), "new.key")})
	require.NoError(t, err)
	assert.True(t, created)

	_, _, err = loadKey(&config.Config{})
	require.ErrorIs(t, err, errNoPrivateKey)

	_, _, err = loadKey(&config.Config{PrivateKey: "0xzz"})
	require.Error(t, err)
}

func TestRelayerResult_GetOutput(t *testing.T) {
	t.Parallel()

	empty := newRelayerResult(nil).GetOutput()
	assert.Contains(t, empty, "Unfinished pings = 0")
	assert.NotContains(t, empty, "[UNFINISHED PINGS]")

	result := newRelayerResult([]relayer.Job{
		{
			EventID:     types.StringToHash("0x01"),
			BlockNumber: 7,
			Stage:       relayer.StageAwaitingHeader,
			Attempts:    1,
		},
		{
			EventID:     types.StringToHash("0x02"),
			BlockNumber: 8,
			Stage:       relayer.StageConfirmed,
		},
	})
	require.Len(t, result.Unfinished, 1)
	assert.Equal(t, 1, result.Confirmed)

	out := result.GetOutput()
	assert.Contains(t, out, "Unfinished pings = 1")
	assert.Contains(t, out, "awaiting_header")
}

func TestOpenTrieStorage(t *testing.T) {
	c := config.DefaultConfig()
	c.DataDir = t.TempDir()

	for _, backend := range []string{config.DBBackendMemory, config.DBBackendBolt} {
		c.DBBackend = backend

		storage, err := openTrieStorage(c, hclog.NewNullLogger())
		require.NoError(t, err)
		assert.Nil(t, storage, backend)
	}

	c.DBBackend = config.DBBackendLevelDB

	storage, err := openTrieStorage(c, hclog.NewNullLogger())
	require.NoError(t, err)
	require.NotNil(t, storage)

	require.NoError(t, storage.Put([]byte{0x01}, []byte{0x02}))
	require.NoError(t, storage.Close())
	assert.DirExists(t, filepath.Join(c.DataDir, helper.TrieDirName))
}
