package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"
)

const (
	DBBackendMemory  = "memory"
	DBBackendBolt    = "boltdb"
	DBBackendLevelDB = "leveldb"

	SubmitterLocal = "local"
	SubmitterChain = "chain"

	DefaultPollInterval    = "30s"
	DefaultRecheckInterval = "15s"
	DefaultMismatchBackoff = "2m"
	DefaultLookback        = 100
	DefaultBatchSize       = 10
	DefaultRetryCount      = 3
	DefaultWorkers         = 4
	DefaultMaxAttempts     = 5
	DefaultBoundedSetSize  = 10000
	DefaultTrieCacheSize   = 128
)

var errInvalidConfig = errors.New("invalid config")

// Config defines the relayer configuration params
type Config struct {
	Source      *Chain `json:"source" yaml:"source" hcl:"source"`
	Destination *Chain `json:"destination" yaml:"destination" hcl:"destination"`

	// PingSender emits Ping on the source chain
	PingSender string `json:"ping_sender" yaml:"ping_sender" hcl:"ping_sender"`
	// PingReceiver verifies proofs on the destination chain
	PingReceiver string `json:"ping_receiver" yaml:"ping_receiver" hcl:"ping_receiver"`
	// TrustAdapter anchors source block hashes on the destination chain
	TrustAdapter string `json:"trust_adapter" yaml:"trust_adapter" hcl:"trust_adapter"`

	PrivateKey     string `json:"private_key" yaml:"private_key" hcl:"private_key"`
	PrivateKeyFile string `json:"private_key_file" yaml:"private_key_file" hcl:"private_key_file"`

	DataDir   string `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
	DBBackend string `json:"db_backend" yaml:"db_backend" hcl:"db_backend"`
	Submitter string `json:"submitter" yaml:"submitter" hcl:"submitter"`

	PollInterval    string `json:"polling_interval" yaml:"polling_interval" hcl:"polling_interval"`
	RecheckInterval string `json:"recheck_interval" yaml:"recheck_interval" hcl:"recheck_interval"`
	MismatchBackoff string `json:"mismatch_backoff" yaml:"mismatch_backoff" hcl:"mismatch_backoff"`
	// integer fields are signed since hcl only decodes into signed kinds
	Lookback       int `json:"lookback_blocks" yaml:"lookback_blocks" hcl:"lookback_blocks"`
	BatchSize      int `json:"batch_size" yaml:"batch_size" hcl:"batch_size"`
	RetryCount     int `json:"retry_count" yaml:"retry_count" hcl:"retry_count"`
	Workers        int `json:"workers" yaml:"workers" hcl:"workers"`
	MaxAttempts    int `json:"max_attempts" yaml:"max_attempts" hcl:"max_attempts"`
	BoundedSetSize int `json:"bounded_set_size" yaml:"bounded_set_size" hcl:"bounded_set_size"`
	TrieCacheSize  int `json:"trie_cache_size" yaml:"trie_cache_size" hcl:"trie_cache_size"`

	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr" hcl:"prometheus_addr"`
	LogLevel       string `json:"log_level" yaml:"log_level" hcl:"log_level"`
	LogFilePath    string `json:"log_to" yaml:"log_to" hcl:"log_to"`
	JSONLogFormat  bool   `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`
}

// Chain holds the endpoints of one chain
type Chain struct {
	RPCURL string `json:"rpc_url" yaml:"rpc_url" hcl:"rpc_url"`
	// WSURL enables new head notifications when set
	WSURL string `json:"ws_url" yaml:"ws_url" hcl:"ws_url"`
	// ChainID is resolved through eth_chainId when zero
	ChainID int64 `json:"chain_id" yaml:"chain_id" hcl:"chain_id"`
}

// DefaultConfig returns the default relayer configuration
func DefaultConfig() *Config {
	return &Config{
		Source:          &Chain{RPCURL: "http://127.0.0.1:8545"},
		Destination:     &Chain{RPCURL: "http://127.0.0.1:8546"},
		DataDir:         "./relayer-data",
		DBBackend:       DBBackendBolt,
		Submitter:       SubmitterChain,
		PollInterval:    DefaultPollInterval,
		RecheckInterval: DefaultRecheckInterval,
		MismatchBackoff: DefaultMismatchBackoff,
		Lookback:        DefaultLookback,
		BatchSize:       DefaultBatchSize,
		RetryCount:      DefaultRetryCount,
		Workers:         DefaultWorkers,
		MaxAttempts:     DefaultMaxAttempts,
		BoundedSetSize:  DefaultBoundedSetSize,
		TrieCacheSize:   DefaultTrieCacheSize,
		LogLevel:        "INFO",
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()

	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that every required field is set and well formed
func (c *Config) Validate() error {
	var result error

	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]interface{}{errInvalidConfig}, args...)...))
	}

	if c.Source == nil || c.Source.RPCURL == "" {
		fail("source rpc_url is required")
	}

	if c.Destination == nil || c.Destination.RPCURL == "" {
		fail("destination rpc_url is required")
	}

	if err := validateAddress(c.PingSender); err != nil {
		fail("ping_sender: %v", err)
	}

	if err := validateAddress(c.TrustAdapter); err != nil {
		fail("trust_adapter: %v", err)
	}

	switch c.Submitter {
	case SubmitterLocal:
	case SubmitterChain:
		if err := validateAddress(c.PingReceiver); err != nil {
			fail("ping_receiver: %v", err)
		}

		if c.PrivateKey == "" && c.PrivateKeyFile == "" {
			fail("private_key or private_key_file is required by the chain submitter")
		}
	default:
		fail("unknown submitter %q", c.Submitter)
	}

	switch c.DBBackend {
	case DBBackendMemory, DBBackendBolt, DBBackendLevelDB:
	default:
		fail("unknown db_backend %q", c.DBBackend)
	}

	for name, value := range map[string]string{
		"polling_interval": c.PollInterval,
		"recheck_interval": c.RecheckInterval,
		"mismatch_backoff": c.MismatchBackoff,
	} {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			fail("%s must be a positive duration, got %q", name, value)
		}
	}

	if c.BatchSize <= 0 {
		fail("batch_size must be positive")
	}

	if c.Lookback < 0 || c.RetryCount < 0 {
		fail("lookback_blocks and retry_count must not be negative")
	}

	if c.Source != nil && c.Source.ChainID < 0 {
		fail("source chain_id must not be negative")
	}

	if c.Workers <= 0 {
		fail("workers must be positive")
	}

	if c.MaxAttempts <= 0 {
		fail("max_attempts must be positive")
	}

	if c.BoundedSetSize <= 0 || c.TrieCacheSize <= 0 {
		fail("bounded_set_size and trie_cache_size must be positive")
	}

	return result
}

func validateAddress(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}

	var a types.Address

	return a.UnmarshalText([]byte(addr))
}

// Poll returns the polling interval, the config must be valid
func (c *Config) Poll() time.Duration {
	return mustDuration(c.PollInterval)
}

// Recheck returns the anchor recheck interval, the config must be valid
func (c *Config) Recheck() time.Duration {
	return mustDuration(c.RecheckInterval)
}

// Backoff returns the root mismatch backoff, the config must be valid
func (c *Config) Backoff() time.Duration {
	return mustDuration(c.MismatchBackoff)
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err) //nolint:gocritic
	}

	return d
}
