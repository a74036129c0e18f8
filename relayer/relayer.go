package relayer

import (
	"context"
	"errors"
	"time"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/tracker"
	"github.com/0xPolygon/proof-relay/trie"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

const (
	pingPollerName   = "ping_poller"
	anchorPollerName = "anchor_poller"

	batchBuffer = 16
)

// SourceClient is the source chain access of a relayer
type SourceClient interface {
	tracker.LogClient
	proof.BlockSource
}

// Config holds the relayer settings that are not owned by the coordinator
type Config struct {
	Coordinator CoordinatorConfig

	// TrustAdapter emits HashStored on the destination chain
	TrustAdapter types.Address

	PollInterval  time.Duration
	Lookback      uint64
	BatchSize     uint64
	TrieCacheSize int
	// TrieStorage keeps built receipt tries beyond the cache when set
	TrieStorage trie.Storage

	// SourceWSURL and DestinationWSURL enable newHeads subscriptions
	SourceWSURL      string
	DestinationWSURL string
}

// Relayer watches the source emitter and the destination trust adapter and
// feeds both to a Coordinator
type Relayer struct {
	coordinator  *Coordinator
	pingPoller   *tracker.LogPoller
	anchorPoller *tracker.LogPoller
	notifiers    []*tracker.HeadNotifier
	logger       hclog.Logger
}

// NewRelayer wires the pollers and the coordinator. destination may be nil,
// anchors are then only learnt by querying the oracle.
func NewRelayer(
	config Config,
	source SourceClient,
	destination tracker.LogClient,
	submitter Submitter,
	oracle verifier.TrustOracle,
	store tracker.CursorStore,
	logger hclog.Logger,
) (*Relayer, error) {
	if source == nil {
		return nil, errors.New("source client is required")
	}

	if destination == nil && oracle == nil {
		return nil, errors.New("either a destination client or a trust oracle is required")
	}

	r := &Relayer{logger: logger.Named("relayer")}

	pings := make(chan *tracker.LogBatch, batchBuffer)

	r.pingPoller = tracker.NewLogPoller(tracker.LogPollerConfig{
		Name:         pingPollerName,
		Address:      config.Coordinator.Emitter,
		Events:       []types.Hash{types.Hash(contractsapi.PingEventType.ID())},
		PollInterval: config.PollInterval,
		Lookback:     config.Lookback,
		BatchSize:    config.BatchSize,
	}, source, store, pings, logger)

	if config.SourceWSURL != "" {
		notifier := tracker.NewHeadNotifier(config.SourceWSURL, logger)
		r.pingPoller.WithHeads(notifier.Subscribe())
		r.notifiers = append(r.notifiers, notifier)
	}

	var anchors chan *tracker.LogBatch

	if destination != nil {
		anchors = make(chan *tracker.LogBatch, batchBuffer)

		r.anchorPoller = tracker.NewLogPoller(tracker.LogPollerConfig{
			Name:         anchorPollerName,
			Address:      config.TrustAdapter,
			Events:       []types.Hash{types.Hash(contractsapi.HashStoredEventType.ID())},
			PollInterval: config.PollInterval,
			Lookback:     config.Lookback,
			BatchSize:    config.BatchSize,
		}, destination, store, anchors, logger)

		if config.DestinationWSURL != "" {
			notifier := tracker.NewHeadNotifier(config.DestinationWSURL, logger)
			r.anchorPoller.WithHeads(notifier.Subscribe())
			r.notifiers = append(r.notifiers, notifier)
		}
	}

	generatorOpts := []proof.GeneratorOption{
		proof.WithTrieCacheSize(config.TrieCacheSize),
		proof.WithLogger(logger),
	}

	if config.TrieStorage != nil {
		generatorOpts = append(generatorOpts, proof.WithTrieStorage(config.TrieStorage))
	}

	generator := proof.NewGenerator(source, config.Coordinator.ChainID, generatorOpts...)

	coordinator, err := NewCoordinator(config.Coordinator, generator, submitter, oracle, pings, anchors, logger)
	if err != nil {
		return nil, err
	}

	r.coordinator = coordinator

	return r, nil
}

// Coordinator returns the coordinator for status queries
func (r *Relayer) Coordinator() *Coordinator {
	return r.coordinator
}

// Start runs every component until ctx is canceled or one of them fails
func (r *Relayer) Start(ctx context.Context) error {
	r.logger.Info("Relayer started", "instance", r.coordinator.ID(), "head subscriptions", len(r.notifiers))

	g, ctx := errgroup.WithContext(ctx)

	for _, notifier := range r.notifiers {
		notifier := notifier

		g.Go(func() error {
			return notifier.Run(ctx)
		})
	}

	g.Go(func() error {
		return r.pingPoller.Run(ctx)
	})

	if r.anchorPoller != nil {
		g.Go(func() error {
			return r.anchorPoller.Run(ctx)
		})
	}

	g.Go(func() error {
		return r.coordinator.Run(ctx)
	})

	return g.Wait()
}
