package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sender  = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	adapter = "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestReadConfigFile(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"config.json": `{
			"source": {"rpc_url": "http://source:8545", "chain_id": 23295},
			"ping_sender": "` + sender + `",
			"trust_adapter": "` + adapter + `",
			"submitter": "local",
			"workers": 2,
			"lookback_blocks": 50,
			"batch_size": 7,
			"retry_count": 5
		}`,
		"config.yaml": `
source:
  rpc_url: http://source:8545
  chain_id: 23295
ping_sender: "` + sender + `"
trust_adapter: "` + adapter + `"
submitter: local
workers: 2
lookback_blocks: 50
batch_size: 7
retry_count: 5
`,
		"config.hcl": `
source {
  rpc_url = "http://source:8545"
  chain_id = 23295
}
ping_sender = "` + sender + `"
trust_adapter = "` + adapter + `"
submitter = "local"
workers = 2
lookback_blocks = 50
batch_size = 7
retry_count = 5
`,
	}

	for name, content := range files {
		config, err := ReadConfigFile(writeFile(t, name, content))
		require.NoError(t, err, name)

		assert.Equal(t, "http://source:8545", config.Source.RPCURL, name)
		assert.Equal(t, int64(23295), config.Source.ChainID, name)
		assert.Equal(t, 2, config.Workers, name)
		assert.Equal(t, 50, config.Lookback, name)
		assert.Equal(t, 7, config.BatchSize, name)
		assert.Equal(t, 5, config.RetryCount, name)

		// untouched values keep their defaults
		assert.Equal(t, DefaultMaxAttempts, config.MaxAttempts, name)
		assert.Equal(t, DefaultPollInterval, config.PollInterval, name)

		require.NoError(t, config.Validate(), name)
	}
}

func TestReadConfigFile_UnknownSuffix(t *testing.T) {
	t.Parallel()

	_, err := ReadConfigFile(writeFile(t, "config.toml", ""))
	require.ErrorContains(t, err, "neither hcl, json, yaml nor yml")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := DefaultConfig()
		c.PingSender = sender
		c.TrustAdapter = adapter
		c.PingReceiver = adapter
		c.PrivateKey = "0x01"

		return c
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"missing sender":     func(c *Config) { c.PingSender = "" },
		"malformed adapter":  func(c *Config) { c.TrustAdapter = "0x1234" },
		"missing key":        func(c *Config) { c.PrivateKey = "" },
		"missing receiver":   func(c *Config) { c.PingReceiver = "" },
		"unknown backend":    func(c *Config) { c.DBBackend = "redis" },
		"unknown submitter":  func(c *Config) { c.Submitter = "remote" },
		"bad interval":       func(c *Config) { c.PollInterval = "soon" },
		"zero batch":         func(c *Config) { c.BatchSize = 0 },
		"negative lookback":  func(c *Config) { c.Lookback = -1 },
		"no workers":         func(c *Config) { c.Workers = 0 },
		"missing source rpc": func(c *Config) { c.Source.RPCURL = "" },
		"negative backoff":   func(c *Config) { c.MismatchBackoff = "-1s" },
	}

	for name, mutate := range cases {
		c := valid()
		mutate(c)

		require.ErrorIs(t, c.Validate(), errInvalidConfig, name)
	}

	// the local submitter needs neither a key nor a receiver
	local := valid()
	local.Submitter = SubmitterLocal
	local.PrivateKey = ""
	local.PingReceiver = ""
	require.NoError(t, local.Validate())
}
