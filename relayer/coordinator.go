package relayer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/rpcclient"
	"github.com/0xPolygon/proof-relay/tracker"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/armon/go-metrics"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers         = 4
	defaultMaxAttempts     = 5
	defaultMismatchBackoff = 2 * time.Minute
	defaultRecheckInterval = 15 * time.Second
	defaultBoundedSetSize  = 10000

	// maxRecheckBlocks caps the oracle calls of one recheck
	maxRecheckBlocks = 64
)

// ProofGenerator builds the proof of a log identified the way eth_getLogs
// reports it. *proof.Generator implements it.
type ProofGenerator interface {
	GenerateForBlockLog(ctx context.Context, txHash types.Hash, blockLogIndex uint64) (*proof.Proof, error)
}

var _ ProofGenerator = (*proof.Generator)(nil)

type CoordinatorConfig struct {
	// ChainID of the source chain
	ChainID uint64
	// Emitter restricts pings to one source contract when set
	Emitter types.Address

	Workers     int
	MaxAttempts int
	// MismatchBackoff delays the retry of a block whose receipts did not
	// rebuild the header receipts root
	MismatchBackoff time.Duration
	// RecheckInterval is how often pending blocks are checked against the oracle
	// and due retries are queued
	RecheckInterval time.Duration
	// BoundedSetSize bounds the pending, confirmed, failed and anchored sets
	BoundedSetSize int
}

func (c *CoordinatorConfig) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.MismatchBackoff <= 0 {
		c.MismatchBackoff = defaultMismatchBackoff
	}

	if c.RecheckInterval <= 0 {
		c.RecheckInterval = defaultRecheckInterval
	}

	if c.BoundedSetSize <= 0 {
		c.BoundedSetSize = defaultBoundedSetSize
	}
}

type task struct {
	eventID  types.Hash
	txHash   types.Hash
	logIndex uint64
	proof    *proof.Proof
}

type phase int

const (
	phaseGenerated phase = iota
	phaseSubmitted
)

type result struct {
	eventID types.Hash
	phase   phase
	proof   *proof.Proof
	err     error
}

// Coordinator moves pings from the source chain through proof generation
// and submission. A single loop owns every job. Workers only receive tasks
// from the loop and report back through the result channel, so the
// transitions of one event are strictly ordered.
type Coordinator struct {
	config    CoordinatorConfig
	id        string
	generator ProofGenerator
	submitter Submitter
	oracle    verifier.TrustOracle
	logger    hclog.Logger

	pings   <-chan *tracker.LogBatch
	anchors <-chan *tracker.LogBatch

	work       chan task
	results    chan result
	oracleHits chan []uint64

	// owned by the loop
	jobs       map[types.Hash]*Job
	pending    *lru.Cache
	submitted  *lru.Cache
	failed     *lru.Cache
	anchored   *lru.Cache
	queue      []task
	rechecking bool
	now        func() time.Time

	viewLock sync.RWMutex
	view     map[types.Hash]Job
}

// NewCoordinator creates a coordinator consuming ping batches and, when
// anchors is not nil, HashStored batches of the trust adapter. The oracle is
// queried for pending blocks on every recheck, it may be nil when anchors are
// only learnt from events.
func NewCoordinator(
	config CoordinatorConfig,
	generator ProofGenerator,
	submitter Submitter,
	oracle verifier.TrustOracle,
	pings <-chan *tracker.LogBatch,
	anchors <-chan *tracker.LogBatch,
	logger hclog.Logger,
) (*Coordinator, error) {
	config.setDefaults()

	id := uuid.NewString()

	c := &Coordinator{
		config:     config,
		id:         id,
		generator:  generator,
		submitter:  submitter,
		oracle:     oracle,
		logger:     logger.Named("coordinator").With("instance", id),
		pings:      pings,
		anchors:    anchors,
		work:       make(chan task),
		results:    make(chan result, config.Workers),
		oracleHits: make(chan []uint64, 1),
		jobs:       map[types.Hash]*Job{},
		now:        time.Now,
		view:       map[types.Hash]Job{},
	}

	var err error

	if c.pending, err = lru.NewWithEvict(config.BoundedSetSize, c.onPendingEvicted); err != nil {
		return nil, err
	}

	if c.submitted, err = lru.NewWithEvict(config.BoundedSetSize, c.onSubmittedEvicted); err != nil {
		return nil, err
	}

	// a terminal failure leaves the loop and is only kept for the job view
	if c.failed, err = lru.NewWithEvict(config.BoundedSetSize, c.onSubmittedEvicted); err != nil {
		return nil, err
	}

	if c.anchored, err = lru.New(config.BoundedSetSize); err != nil {
		return nil, err
	}

	return c, nil
}

// ID identifies this coordinator instance in logs
func (c *Coordinator) ID() string {
	return c.id
}

// Run starts the worker pool and the loop and blocks until ctx is canceled
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("Coordinator started",
		"chain id", c.config.ChainID,
		"workers", c.config.Workers,
		"max attempts", c.config.MaxAttempts)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < c.config.Workers; i++ {
		g.Go(func() error {
			c.worker(ctx)

			return nil
		})
	}

	g.Go(func() error {
		return c.loop(ctx)
	})

	return g.Wait()
}

func (c *Coordinator) loop(ctx context.Context) error {
	ticker := time.NewTicker(c.config.RecheckInterval)
	defer ticker.Stop()

	pings, anchors := c.pings, c.anchors

	for {
		var (
			work chan<- task
			next task
		)

		if len(c.queue) > 0 {
			work = c.work
			next = c.queue[0]
		}

		select {
		case <-ctx.Done():
			c.logger.Info("Coordinator stopped", "in flight", len(c.jobs))

			return nil

		case batch, ok := <-pings:
			if !ok {
				pings = nil

				continue
			}

			c.handlePings(batch)

		case batch, ok := <-anchors:
			if !ok {
				anchors = nil

				continue
			}

			c.handleAnchors(batch)

		case r := <-c.results:
			c.handleResult(r)

		case blocks := <-c.oracleHits:
			c.rechecking = false

			for _, block := range blocks {
				c.markAnchored(block)
			}

		case work <- next:
			c.queue = c.queue[1:]
			c.dispatched(next)

		case <-ticker.C:
			c.tick(ctx)
		}

		c.updateInflight()
	}
}

func (c *Coordinator) handlePings(batch *tracker.LogBatch) {
	for _, log := range batch.Logs {
		if c.config.Emitter != types.ZeroAddress && log.Address != c.config.Emitter.ToEthgo() {
			continue
		}

		var event contractsapi.PingEvent

		matched, err := event.ParseLog(log)
		if err != nil || !matched {
			c.logger.Warn("skipping malformed ping", "tx", log.TransactionHash, "log", log.LogIndex, "err", err)

			continue
		}

		if !event.BlockNumber.IsUint64() {
			c.logger.Warn("skipping ping with oversized block number", "tx", log.TransactionHash, "log", log.LogIndex)

			continue
		}

		eventID, err := contractsapi.EventID(c.config.ChainID, event.Sender, event.BlockNumber.Uint64())
		if err != nil {
			c.logger.Error("failed to compute event id", "tx", log.TransactionHash, "err", err)

			continue
		}

		if c.submitted.Contains(eventID) || c.failed.Contains(eventID) {
			continue
		}

		if _, ok := c.jobs[eventID]; ok {
			continue
		}

		job := &Job{
			ID:              uuid.NewString(),
			EventID:         eventID,
			Stage:           StageSeen,
			Sender:          event.Sender,
			PingBlockNumber: event.BlockNumber.Uint64(),
			BlockNumber:     log.BlockNumber,
			TxHash:          types.Hash(log.TransactionHash),
			LogIndex:        log.LogIndex,
			UpdatedAt:       c.now(),
		}

		c.jobs[eventID] = job

		metrics.IncrCounter([]string{"relayer", "pings_seen"}, 1)

		c.logger.Info("ping seen", "event", eventID, "job", job.ID, "sender", job.Sender, "block", job.BlockNumber)

		c.awaitHeader(job)
	}
}

func (c *Coordinator) handleAnchors(batch *tracker.LogBatch) {
	for _, log := range batch.Logs {
		var event contractsapi.HashStoredEvent

		matched, err := event.ParseLog(log)
		if err != nil || !matched || !event.ID.IsUint64() {
			c.logger.Warn("skipping malformed anchor", "tx", log.TransactionHash, "err", err)

			continue
		}

		metrics.IncrCounter([]string{"relayer", "anchors_seen"}, 1)

		c.logger.Debug("anchor seen", "block", event.ID, "hash", event.Hash)

		c.markAnchored(event.ID.Uint64())
	}
}

// markAnchored releases every ping of block waiting for its header
func (c *Coordinator) markAnchored(block uint64) {
	c.anchored.Add(block, struct{}{})

	for _, key := range c.pending.Keys() {
		v, ok := c.pending.Peek(key)
		if !ok {
			continue
		}

		job, ok := v.(*Job)
		if !ok || job.BlockNumber != block {
			continue
		}

		c.ready(job)
		c.pending.Remove(key)
	}
}

func (c *Coordinator) awaitHeader(job *Job) {
	if c.anchored.Contains(job.BlockNumber) {
		c.ready(job)

		return
	}

	c.transition(job, StageAwaitingHeader)
	c.pending.Add(job.EventID, job)
}

func (c *Coordinator) ready(job *Job) {
	job.RetryAt = time.Time{}
	c.transition(job, StageProofReady)

	c.queue = append(c.queue, task{
		eventID:  job.EventID,
		txHash:   job.TxHash,
		logIndex: job.LogIndex,
		proof:    job.proof,
	})
}

// dispatched marks jobs whose stored proof goes straight to the submitter
func (c *Coordinator) dispatched(t task) {
	if t.proof == nil {
		return
	}

	if job, ok := c.jobs[t.eventID]; ok && job.Stage == StageProofReady {
		c.transition(job, StageSubmitted)
	}
}

func (c *Coordinator) handleResult(r result) {
	job, ok := c.jobs[r.eventID]
	if !ok || (job.Stage != StageProofReady && job.Stage != StageSubmitted) {
		return
	}

	switch r.phase {
	case phaseGenerated:
		if r.err != nil {
			c.generationFailed(job, r.err)

			return
		}

		metrics.IncrCounter([]string{"relayer", "proofs_generated"}, 1)

		job.proof = r.proof
		c.transition(job, StageSubmitted)

	case phaseSubmitted:
		c.submissionDone(job, r.err)
	}
}

func (c *Coordinator) generationFailed(job *Job, err error) {
	switch {
	case errors.Is(err, proof.ErrTrieRootMismatch):
		c.fail(job, err, c.now().Add(c.config.MismatchBackoff))
	case rpcclient.IsTransient(err), errors.Is(err, rpcclient.ErrNotFound):
		c.retry(job, err)
	default:
		c.fail(job, err, time.Time{})
	}
}

func (c *Coordinator) submissionDone(job *Job, err error) {
	switch {
	case err == nil:
		c.confirm(job, false)
	case errors.Is(err, verifier.ErrAlreadyProcessed):
		c.confirm(job, true)
	case verifier.IsUnavailable(err):
		job.setError(err)
		c.anchored.Remove(job.BlockNumber)
		c.awaitHeader(job)
	case rpcclient.IsTransient(err):
		c.retry(job, err)
	default:
		c.fail(job, err, time.Time{})
	}
}

func (c *Coordinator) confirm(job *Job, duplicate bool) {
	job.Duplicate = duplicate
	job.proof = nil
	job.setError(nil)
	c.transition(job, StageConfirmed)

	delete(c.jobs, job.EventID)
	c.submitted.Add(job.EventID, job)

	if duplicate {
		metrics.IncrCounter([]string{"relayer", "submissions_duplicate"}, 1)
	} else {
		metrics.IncrCounter([]string{"relayer", "submissions_confirmed"}, 1)
	}

	c.logger.Info("ping confirmed", "event", job.EventID, "job", job.ID, "duplicate", duplicate)
}

// retry sends the job back to ProofReady for the next tick, or fails it once
// its attempts are used up
func (c *Coordinator) retry(job *Job, err error) {
	job.Attempts++
	job.setError(err)

	if job.Attempts >= c.config.MaxAttempts {
		c.fail(job, err, time.Time{})

		return
	}

	c.logger.Debug("job will be retried", "event", job.EventID, "attempt", job.Attempts, "err", err)

	job.RetryAt = c.now()
	c.transition(job, StageProofReady)
}

// fail moves the job to Failed. A non zero retryAt queues it again at that
// time unless its attempts are used up.
func (c *Coordinator) fail(job *Job, err error, retryAt time.Time) {
	if !retryAt.IsZero() {
		job.Attempts++

		if job.Attempts >= c.config.MaxAttempts {
			retryAt = time.Time{}
		}
	}

	job.proof = nil
	job.RetryAt = retryAt
	job.setError(err)
	c.transition(job, StageFailed)

	metrics.IncrCounter([]string{"relayer", "submissions_failed"}, 1)

	if retryAt.IsZero() {
		delete(c.jobs, job.EventID)
		c.failed.Add(job.EventID, job)

		c.logger.Error("job failed", "event", job.EventID, "job", job.ID, "attempts", job.Attempts, "err", err)
	} else {
		c.logger.Warn("job failed, will retry", "event", job.EventID, "retry at", retryAt, "err", err)
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	now := c.now()

	for _, job := range c.jobs {
		if job.RetryAt.IsZero() || now.Before(job.RetryAt) {
			continue
		}

		if job.Stage == StageProofReady || job.Stage == StageFailed {
			c.ready(job)
		}
	}

	if c.oracle == nil || c.rechecking || c.pending.Len() == 0 {
		return
	}

	c.rechecking = true

	go c.checkAnchors(ctx, c.pendingBlocks())
}

func (c *Coordinator) pendingBlocks() []uint64 {
	seen := map[uint64]struct{}{}
	blocks := make([]uint64, 0)

	for _, key := range c.pending.Keys() {
		v, ok := c.pending.Peek(key)
		if !ok {
			continue
		}

		job, ok := v.(*Job)
		if !ok {
			continue
		}

		if _, ok := seen[job.BlockNumber]; ok {
			continue
		}

		seen[job.BlockNumber] = struct{}{}
		blocks = append(blocks, job.BlockNumber)

		if len(blocks) == maxRecheckBlocks {
			break
		}
	}

	return blocks
}

// checkAnchors asks the oracle for every block and reports the anchored ones
func (c *Coordinator) checkAnchors(ctx context.Context, blocks []uint64) {
	anchored := make([]uint64, 0, len(blocks))

	for _, block := range blocks {
		if _, err := c.oracle.TrustedHash(ctx, c.config.ChainID, block); err != nil {
			if !verifier.IsUnavailable(err) && ctx.Err() == nil {
				c.logger.Debug("trusted hash lookup failed", "block", block, "err", err)
			}

			continue
		}

		anchored = append(anchored, block)
	}

	select {
	case c.oracleHits <- anchored:
	case <-ctx.Done():
	}
}

func (c *Coordinator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-c.work:
			c.process(ctx, t)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, t task) {
	p := t.proof

	if p == nil {
		var err error

		p, err = c.generator.GenerateForBlockLog(ctx, t.txHash, t.logIndex)
		if !c.report(ctx, result{eventID: t.eventID, phase: phaseGenerated, proof: p, err: err}) || err != nil {
			return
		}
	}

	// nothing is submitted once shutdown started
	if ctx.Err() != nil {
		return
	}

	err := c.submitter.Submit(ctx, p)
	if ctx.Err() != nil {
		return
	}

	c.report(ctx, result{eventID: t.eventID, phase: phaseSubmitted, err: err})
}

func (c *Coordinator) report(ctx context.Context, r result) bool {
	select {
	case c.results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Coordinator) transition(job *Job, stage Stage) {
	if job.Stage != stage {
		c.logger.Debug("job transition", "event", job.EventID, "from", job.Stage, "to", stage)
	}

	job.Stage = stage
	job.UpdatedAt = c.now()

	c.publish(job)
}

func (c *Coordinator) updateInflight() {
	inflight := 0

	for _, job := range c.jobs {
		if !job.IsTerminal() {
			inflight++
		}
	}

	metrics.SetGauge([]string{"relayer", "inflight"}, float32(inflight))
}

func (c *Coordinator) onPendingEvicted(key interface{}, value interface{}) {
	job, ok := value.(*Job)
	if !ok || job.Stage != StageAwaitingHeader {
		return
	}

	c.logger.Warn("pending ping evicted", "event", job.EventID, "block", job.BlockNumber)

	delete(c.jobs, job.EventID)
	c.unpublish(job.EventID)
}

// onSubmittedEvicted drops confirmed and failed jobs from the view
func (c *Coordinator) onSubmittedEvicted(key interface{}, value interface{}) {
	if eventID, ok := key.(types.Hash); ok {
		c.unpublish(eventID)
	}
}

func (c *Coordinator) publish(job *Job) {
	c.viewLock.Lock()
	defer c.viewLock.Unlock()

	c.view[job.EventID] = job.snapshot()
}

func (c *Coordinator) unpublish(eventID types.Hash) {
	c.viewLock.Lock()
	defer c.viewLock.Unlock()

	delete(c.view, eventID)
}

// Jobs returns a snapshot of every tracked job ordered by source position
func (c *Coordinator) Jobs() []Job {
	c.viewLock.RLock()
	defer c.viewLock.RUnlock()

	jobs := make([]Job, 0, len(c.view))
	for _, job := range c.view {
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].BlockNumber != jobs[j].BlockNumber {
			return jobs[i].BlockNumber < jobs[j].BlockNumber
		}

		return jobs[i].LogIndex < jobs[j].LogIndex
	})

	return jobs
}

// Job returns the snapshot of the job of eventID
func (c *Coordinator) Job(eventID types.Hash) (Job, bool) {
	c.viewLock.RLock()
	defer c.viewLock.RUnlock()

	job, ok := c.view[eventID]

	return job, ok
}
