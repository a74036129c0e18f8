package tracker

import (
	"context"
	"time"

	"github.com/0xPolygon/proof-relay/helper/common"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	"github.com/umbracle/ethgo"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultLookback     = 100
	defaultBatchSize    = 10
)

// LogClient is the chain access a poller needs
type LogClient interface {
	HeadNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, filter *ethgo.LogFilter) ([]*ethgo.Log, error)
}

type LogPollerConfig struct {
	// Name keys the poller cursor
	Name    string
	Address types.Address
	// Events restricts the logs to these topic0 values
	Events       []types.Hash
	PollInterval time.Duration
	// Lookback is how many blocks below head are rescanned on start
	Lookback  uint64
	BatchSize uint64
}

// LogBatch is a page of logs handed off by a poller
type LogBatch struct {
	Poller string
	From   uint64
	To     uint64
	Logs   []*ethgo.Log
}

// LogPoller pages eth_getLogs over [cursor+1, head] on every tick and hands
// the logs off through a channel. The cursor only moves once a page was
// handed off.
type LogPoller struct {
	config LogPollerConfig
	client LogClient
	store  CursorStore
	out    chan<- *LogBatch
	heads  <-chan uint64
	logger hclog.Logger

	next    uint64
	started bool
}

func NewLogPoller(
	config LogPollerConfig,
	client LogClient,
	store CursorStore,
	out chan<- *LogBatch,
	logger hclog.Logger,
) *LogPoller {
	if config.PollInterval == 0 {
		config.PollInterval = defaultPollInterval
	}

	if config.BatchSize == 0 {
		config.BatchSize = defaultBatchSize
	}

	return &LogPoller{
		config: config,
		client: client,
		store:  store,
		out:    out,
		logger: logger.Named(config.Name),
	}
}

// WithHeads makes the poller also poll whenever a new head is announced
func (p *LogPoller) WithHeads(heads <-chan uint64) *LogPoller {
	p.heads = heads

	return p
}

// Run polls until ctx is canceled. Poll errors are logged and retried on
// the next tick.
func (p *LogPoller) Run(ctx context.Context) error {
	p.logger.Info("Start polling logs",
		"address", p.config.Address,
		"interval", p.config.PollInterval,
		"lookback", p.config.Lookback,
		"batch size", p.config.BatchSize)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			p.logger.Warn("failed to poll logs", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.heads:
		}
	}
}

// Poll scans every block up to the current head that was not handed off yet
func (p *LogPoller) Poll(ctx context.Context) error {
	head, err := p.client.HeadNumber(ctx)
	if err != nil {
		return err
	}

	from := p.next

	if !p.started {
		if from, err = p.startBlock(head); err != nil {
			return err
		}
	}

	for start := from; start <= head; start += p.config.BatchSize {
		end := common.Min(start+p.config.BatchSize-1, head)

		logs, err := p.client.GetLogs(ctx, p.filter(start, end))
		if err != nil {
			return err
		}

		if len(logs) > 0 {
			select {
			case p.out <- &LogBatch{Poller: p.config.Name, From: start, To: end, Logs: logs}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := p.store.SetCursor(p.config.Name, end); err != nil {
			return err
		}

		p.next, p.started = end+1, true

		p.logger.Debug("logs handed off", "from", start, "to", end, "logs", len(logs))
	}

	return nil
}

// startBlock rescans the lookback window, or from the persisted cursor when
// it lags behind the window
func (p *LogPoller) startBlock(head uint64) (uint64, error) {
	from := common.SaturatingSub(head, p.config.Lookback)

	cursor, found, err := p.store.Cursor(p.config.Name)
	if err != nil {
		return 0, err
	}

	if found && cursor+1 < from {
		from = cursor + 1
	}

	return from, nil
}

func (p *LogPoller) filter(from, to uint64) *ethgo.LogFilter {
	fromBlock, toBlock := ethgo.BlockNumber(from), ethgo.BlockNumber(to)

	filter := &ethgo.LogFilter{
		Address: []ethgo.Address{p.config.Address.ToEthgo()},
		From:    &fromBlock,
		To:      &toBlock,
	}

	if len(p.config.Events) > 0 {
		events := make([]*ethgo.Hash, len(p.config.Events))
		for i, event := range p.config.Events {
			h := event.ToEthgo()
			events[i] = &h
		}

		filter.Topics = [][]*ethgo.Hash{events}
	}

	return filter
}
