package relayer

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/helper/keystore"
	"github.com/spf13/pflag"
	"github.com/umbracle/ethgo/wallet"
)

const (
	configFlag          = "config"
	sourceRPCFlag       = "source-rpc"
	sourceWSFlag        = "source-ws"
	destinationRPCFlag  = "destination-rpc"
	destinationWSFlag   = "destination-ws"
	pingSenderFlag      = "ping-sender"
	pingReceiverFlag    = "ping-receiver"
	trustAdapterFlag    = "trust-adapter"
	privateKeyFlag      = "private-key"
	privateKeyFileFlag  = "private-key-file"
	dataDirFlag         = "data-dir"
	dbBackendFlag       = "db-backend"
	submitterFlag       = "submitter"
	pollIntervalFlag    = "polling-interval"
	recheckIntervalFlag = "recheck-interval"
	lookbackFlag        = "lookback-blocks"
	workersFlag         = "workers"
	maxAttemptsFlag     = "max-attempts"
	prometheusFlag      = "prometheus"
	logLevelFlag        = "log-level"
	logFileFlag         = "log-to"
	jsonLogFormatFlag   = "json-log-format"
)

var errNoPrivateKey = errors.New("no private key configured")

var params = &relayerParams{
	rawConfig: config.DefaultConfig(),
}

type relayerParams struct {
	configPath string
	rawConfig  *config.Config
}

func (p *relayerParams) isConfigFileSpecified(flags *pflag.FlagSet) bool {
	return flags.Changed(configFlag)
}

// initConfigFromFile loads the config file into the flag bound config and
// reapplies the flags the user set explicitly, so flags win over the file
func (p *relayerParams) initConfigFromFile(flags *pflag.FlagSet) error {
	fileConfig, err := config.ReadConfigFile(p.configPath)
	if err != nil {
		return err
	}

	changed := map[string]string{}

	flags.Visit(func(f *pflag.Flag) {
		if f.Name != configFlag {
			changed[f.Name] = f.Value.String()
		}
	})

	// flags point into the current chain structs, keep them
	source, destination := p.rawConfig.Source, p.rawConfig.Destination

	if fileConfig.Source != nil {
		*source = *fileConfig.Source
	}

	if fileConfig.Destination != nil {
		*destination = *fileConfig.Destination
	}

	*p.rawConfig = *fileConfig
	p.rawConfig.Source, p.rawConfig.Destination = source, destination

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("failed to apply flag %s: %w", name, err)
		}
	}

	return nil
}

// loadKey returns the submitter key from the config, or from the key file
// which is created when missing
func loadKey(c *config.Config) (key *wallet.Key, created bool, err error) {
	switch {
	case c.PrivateKey != "":
		key, err = keystore.ParseKey(c.PrivateKey)

		return key, false, err
	case c.PrivateKeyFile != "":
		return keystore.LoadOrCreateKey(c.PrivateKeyFile)
	default:
		return nil, false, errNoPrivateKey
	}
}
