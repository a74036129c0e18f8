package relayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/helper/common"
	"github.com/0xPolygon/proof-relay/relayer"
	"github.com/0xPolygon/proof-relay/rpcclient"
	"github.com/0xPolygon/proof-relay/tracker"
	"github.com/0xPolygon/proof-relay/trie"
	"github.com/0xPolygon/proof-relay/txrelayer"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func GetCommand() *cobra.Command {
	relayerCmd := &cobra.Command{
		Use:     "relayer",
		Short:   "Watches the source chain for pings and relays their proofs to the destination chain",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(relayerCmd)

	return relayerCmd
}

func setFlags(cmd *cobra.Command) {
	defaultConfig := config.DefaultConfig()

	cmd.Flags().StringVar(
		&params.configPath,
		configFlag,
		"",
		"the path to the relayer config file (hcl, json or yaml)",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Source.RPCURL,
		sourceRPCFlag,
		defaultConfig.Source.RPCURL,
		"the json rpc endpoint of the source chain",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Source.WSURL,
		sourceWSFlag,
		"",
		"the websocket endpoint of the source chain, enables new head notifications",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Destination.RPCURL,
		destinationRPCFlag,
		defaultConfig.Destination.RPCURL,
		"the json rpc endpoint of the destination chain",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Destination.WSURL,
		destinationWSFlag,
		"",
		"the websocket endpoint of the destination chain, enables new head notifications",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PingSender,
		pingSenderFlag,
		"",
		"the address of the ping emitter on the source chain",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PingReceiver,
		pingReceiverFlag,
		"",
		"the address of the ping receiver on the destination chain",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.TrustAdapter,
		trustAdapterFlag,
		"",
		"the address of the trust adapter on the destination chain",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PrivateKey,
		privateKeyFlag,
		"",
		"the hex encoded key submitting proofs to the ping receiver",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PrivateKeyFile,
		privateKeyFileFlag,
		"",
		"the file holding the hex encoded submitter key",
	)

	cmd.MarkFlagsMutuallyExclusive(privateKeyFlag, privateKeyFileFlag)

	cmd.Flags().StringVar(
		&params.rawConfig.DataDir,
		dataDirFlag,
		defaultConfig.DataDir,
		"the data directory used for cursors and the processed set",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.DBBackend,
		dbBackendFlag,
		defaultConfig.DBBackend,
		fmt.Sprintf("the storage backend (%s, %s or %s)",
			config.DBBackendMemory, config.DBBackendBolt, config.DBBackendLevelDB),
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Submitter,
		submitterFlag,
		defaultConfig.Submitter,
		fmt.Sprintf("where proofs are verified (%s or %s)", config.SubmitterChain, config.SubmitterLocal),
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PollInterval,
		pollIntervalFlag,
		defaultConfig.PollInterval,
		"the interval between two log polls",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.RecheckInterval,
		recheckIntervalFlag,
		defaultConfig.RecheckInterval,
		"the interval between two checks of retries and missing trusted hashes",
	)

	cmd.Flags().IntVar(
		&params.rawConfig.Lookback,
		lookbackFlag,
		defaultConfig.Lookback,
		"how many blocks below the head are rescanned on start",
	)

	cmd.Flags().IntVar(
		&params.rawConfig.Workers,
		workersFlag,
		defaultConfig.Workers,
		"the number of proof workers",
	)

	cmd.Flags().IntVar(
		&params.rawConfig.MaxAttempts,
		maxAttemptsFlag,
		defaultConfig.MaxAttempts,
		"the number of attempts before a ping is marked failed",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.PrometheusAddr,
		prometheusFlag,
		"",
		"the address and port for the prometheus instrumentation service (address:port). "+
			"If only port is defined (:port) it will bind to 0.0.0.0:port",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.LogLevel,
		logLevelFlag,
		defaultConfig.LogLevel,
		"the log level for console output",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.LogFilePath,
		logFileFlag,
		"",
		"write all logs to the file at specified location instead of writing them to console",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.JSONLogFormat,
		jsonLogFormatFlag,
		false,
		"log in json format",
	)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	if params.isConfigFileSpecified(cmd.Flags()) {
		if err := params.initConfigFromFile(cmd.Flags()); err != nil {
			return err
		}
	}

	return params.rawConfig.Validate()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)

	result, err := runRelayer(cmd.Context(), params.rawConfig)
	if err != nil {
		outputter.SetError(err)
	} else {
		outputter.SetCommandResult(result)
	}

	outputter.WriteOutput()
}

// runRelayer runs the relayer until a termination signal and reports the
// jobs it still tracks
func runRelayer(ctx context.Context, c *config.Config) (_ *RelayerResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, logCloser, err := helper.NewLogger("proof-relay", c.LogLevel, c.JSONLogFormat, c.LogFilePath)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer

	defer func() {
		var closeErr error

		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				closeErr = multierror.Append(closeErr, cerr)
			}
		}

		if closeErr != nil {
			logger.Error("failed to release resources", "err", closeErr)
		}

		_ = logCloser.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.PrometheusAddr != "" {
		if err := setupTelemetry(); err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}

		startPrometheusServer(ctx, c.PrometheusAddr, logger)
	}

	if c.DBBackend != config.DBBackendMemory {
		if err := common.SetupDataDir(c.DataDir, nil); err != nil {
			return nil, err
		}
	}

	source, err := rpcclient.NewClient(c.Source.RPCURL,
		rpcclient.WithRetries(uint64(c.RetryCount)), rpcclient.WithLogger(logger.Named("source_rpc")))
	if err != nil {
		return nil, err
	}

	closers = append(closers, source)

	destination, err := rpcclient.NewClient(c.Destination.RPCURL,
		rpcclient.WithRetries(uint64(c.RetryCount)), rpcclient.WithLogger(logger.Named("destination_rpc")))
	if err != nil {
		return nil, err
	}

	closers = append(closers, destination)

	chainID := uint64(c.Source.ChainID)
	if chainID == 0 {
		if chainID, err = source.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("failed to resolve source chain id: %w", err)
		}

		logger.Info("Resolved source chain id", "chain id", chainID)
	}

	store, err := openCursorStore(c)
	if err != nil {
		return nil, err
	}

	closers = append(closers, store)

	trieStorage, err := openTrieStorage(c, logger)
	if err != nil {
		return nil, err
	}

	if trieStorage != nil {
		closers = append(closers, trieStorage)
	}

	adapter, _ := helper.ParseAddress(c.TrustAdapter)
	emitter, _ := helper.ParseAddress(c.PingSender)
	oracle := relayer.NewChainOracle(destination, adapter)

	submitter, processed, err := newSubmitter(c, oracle, logger)
	if err != nil {
		return nil, err
	}

	if processed != nil {
		closers = append(closers, processed)
	}

	r, err := relayer.NewRelayer(relayer.Config{
		Coordinator: relayer.CoordinatorConfig{
			ChainID:         chainID,
			Emitter:         emitter,
			Workers:         c.Workers,
			MaxAttempts:     c.MaxAttempts,
			MismatchBackoff: c.Backoff(),
			RecheckInterval: c.Recheck(),
			BoundedSetSize:  c.BoundedSetSize,
		},
		TrustAdapter:     adapter,
		PollInterval:     c.Poll(),
		Lookback:         uint64(c.Lookback),
		BatchSize:        uint64(c.BatchSize),
		TrieCacheSize:    c.TrieCacheSize,
		TrieStorage:      trieStorage,
		SourceWSURL:      c.Source.WSURL,
		DestinationWSURL: c.Destination.WSURL,
	}, source, destination, submitter, oracle, store, logger)
	if err != nil {
		return nil, err
	}

	stopCh := common.GetTerminationSignalCh()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case sig := <-stopCh:
			logger.Info("Caught signal, shutting down", "signal", sig)
			cancel()
		case <-gctx.Done():
		}

		return nil
	})

	g.Go(func() error {
		defer cancel()

		return r.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return newRelayerResult(r.Coordinator().Jobs()), nil
}

func openCursorStore(c *config.Config) (tracker.CursorStore, error) {
	if c.DBBackend == config.DBBackendMemory {
		return tracker.NewMemoryCursorStore(), nil
	}

	return tracker.NewBoltCursorStore(filepath.Join(c.DataDir, helper.CursorsDBName))
}

// openTrieStorage opens the receipt trie node store. Only the leveldb backend
// keeps tries on disk, the others rebuild them from the source chain.
func openTrieStorage(c *config.Config, logger hclog.Logger) (trie.Storage, error) {
	if c.DBBackend != config.DBBackendLevelDB {
		return nil, nil
	}

	return trie.NewLevelDBStorage(filepath.Join(c.DataDir, helper.TrieDirName), logger.Named("trie"))
}

// newSubmitter builds the configured submitter. The local submitter owns a
// processed set which is returned so it can be closed.
func newSubmitter(
	c *config.Config,
	oracle verifier.TrustOracle,
	logger hclog.Logger,
) (relayer.Submitter, verifier.ProcessedSet, error) {
	if c.Submitter == config.SubmitterLocal {
		processed, err := helper.OpenProcessedSet(c.DBBackend, c.DataDir)
		if err != nil {
			return nil, nil, err
		}

		emitter, _ := helper.ParseAddress(c.PingSender)
		v := verifier.NewVerifier(oracle, processed,
			verifier.WithEmitter(emitter), verifier.WithLogger(logger))

		return relayer.NewLocalSubmitter(v), processed, nil
	}

	key, created, err := loadKey(c)
	if err != nil {
		return nil, nil, err
	}

	if created {
		logger.Warn("Generated a new submitter key, fund it before relaying",
			"path", c.PrivateKeyFile, "address", key.Address())
	}

	txRelayer, err := txrelayer.NewTxRelayer(
		txrelayer.WithIPAddress(c.Destination.RPCURL),
		txrelayer.WithLogger(logger.Named("txrelayer")))
	if err != nil {
		return nil, nil, err
	}

	receiver, _ := helper.ParseAddress(c.PingReceiver)

	return relayer.NewChainSubmitter(txRelayer, receiver, key, logger), nil, nil
}
