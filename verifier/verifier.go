package verifier

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/helper/keccak"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/trie"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
)

var pingSignature = types.Hash(contractsapi.PingEventType.ID())

// Verifier checks ping proofs against trusted block hashes and records
// every verified event exactly once
type Verifier struct {
	oracle    TrustOracle
	processed ProcessedSet
	logger    hclog.Logger

	// emitter restricts accepted logs to one contract when set
	emitter *types.Address
}

type Option func(*Verifier)

// WithEmitter only accepts pings emitted by addr
func WithEmitter(addr types.Address) Option {
	return func(v *Verifier) {
		v.emitter = &addr
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger.Named("verifier")
	}
}

func NewVerifier(oracle TrustOracle, processed ProcessedSet, opts ...Option) *Verifier {
	v := &Verifier{
		oracle:    oracle,
		processed: processed,
		logger:    hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Receive resolves the trusted hash of the anchoring block and verifies p
func (v *Verifier) Receive(ctx context.Context, p *proof.Proof) (*Record, error) {
	anchor := p.BlockNumber
	if len(p.AncestralBlockHeaders) > 0 {
		anchor = p.AncestralBlockNumber
	}

	trustedHash, err := v.oracle.TrustedHash(ctx, p.ChainID, anchor)
	if err != nil {
		return nil, err
	}

	log, id, err := v.Verify(p, trustedHash)
	if err != nil {
		return nil, err
	}

	rec, err := v.processed.Get(id)
	if err != nil {
		return nil, err
	}

	v.logger.Info("ping received", "id", id, "sender", rec.Sender,
		"source block", rec.SourceBlockNumber, "emitter", log.Address)

	return rec, nil
}

// ReceiveEncoded unpacks the wire encoding of a proof and receives it
func (v *Verifier) ReceiveEncoded(ctx context.Context, encoded []byte) (*Record, error) {
	p, err := proof.Unpack(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	return v.Receive(ctx, p)
}

// Verify checks p against trustedHash and records the proven ping.
// It returns the proven log and the event id. Nothing is recorded unless
// every check passed.
func (v *Verifier) Verify(p *proof.Proof, trustedHash types.Hash) (*types.Log, types.Hash, error) {
	log, id, rec, err := v.check(p, trustedHash)
	if err != nil {
		metrics.IncrCounter([]string{"verifier", "rejected"}, 1)

		return nil, id, err
	}

	inserted, err := v.processed.Insert(id, rec)
	if err != nil {
		return nil, types.ZeroHash, err
	}

	if !inserted {
		return nil, id, fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
	}

	metrics.IncrCounter([]string{"verifier", "accepted"}, 1)

	return log, id, nil
}

func (v *Verifier) check(p *proof.Proof, trustedHash types.Hash) (*types.Log, types.Hash, *Record, error) {
	header := new(types.Header)
	if err := header.UnmarshalRLP(p.BlockHeader); err != nil {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	if err := verifyHeaderChain(p, headerHash(p.BlockHeader), trustedHash); err != nil {
		return nil, types.ZeroHash, nil, err
	}

	if header.Number != p.BlockNumber {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: header number %d, proof block number %d",
			ErrInvalidProof, header.Number, p.BlockNumber)
	}

	encodedReceipt, err := trie.VerifyProof(header.ReceiptsRoot, p.TxIndex, p.ReceiptProof)
	if err != nil {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	receipt := new(types.Receipt)
	if err := receipt.UnmarshalRLP(encodedReceipt); err != nil {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	if p.LogIndex >= uint64(len(receipt.Logs)) {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: log index %d out of range, receipt has %d logs",
			ErrInvalidEventFormat, p.LogIndex, len(receipt.Logs))
	}

	log := receipt.Logs[p.LogIndex]

	if v.emitter != nil && log.Address != *v.emitter {
		return nil, types.ZeroHash, nil, fmt.Errorf("%w: log emitted by %s", ErrInvalidEventFormat, log.Address)
	}

	sender, sourceBlock, err := parsePing(log)
	if err != nil {
		return nil, types.ZeroHash, nil, err
	}

	id, err := contractsapi.EventID(p.ChainID, sender, sourceBlock)
	if err != nil {
		return nil, types.ZeroHash, nil, err
	}

	prev, err := v.processed.Get(id)
	if err != nil {
		return nil, types.ZeroHash, nil, err
	}

	if prev != nil {
		return nil, id, nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
	}

	rec := &Record{
		Received:          true,
		Sender:            sender,
		SourceBlockNumber: sourceBlock,
	}

	return log, id, rec, nil
}

// verifyHeaderChain links the proof header to the trusted hash, either
// directly or through the ancestral headers
func verifyHeaderChain(p *proof.Proof, proofHash, trustedHash types.Hash) error {
	if len(p.AncestralBlockHeaders) == 0 {
		if p.AncestralBlockNumber != 0 {
			return fmt.Errorf("%w: ancestral block number %d without ancestral headers",
				ErrInvalidProof, p.AncestralBlockNumber)
		}

		if proofHash != trustedHash {
			return fmt.Errorf("%w: header hash %s does not match trusted hash %s",
				ErrInvalidProof, proofHash, trustedHash)
		}

		return nil
	}

	if p.AncestralBlockNumber == 0 ||
		p.AncestralBlockNumber != p.BlockNumber+uint64(len(p.AncestralBlockHeaders)) {
		return fmt.Errorf("%w: ancestral block number %d does not match %d ancestral headers above block %d",
			ErrInvalidProof, p.AncestralBlockNumber, len(p.AncestralBlockHeaders), p.BlockNumber)
	}

	expected := trustedHash

	for i, raw := range p.AncestralBlockHeaders {
		ancestor := new(types.Header)
		if err := ancestor.UnmarshalRLP(raw); err != nil {
			return fmt.Errorf("%w: ancestral header %d: %w", ErrInvalidProof, i, err)
		}

		if hash := headerHash(raw); hash != expected {
			return fmt.Errorf("%w: ancestral header %d hash %s, expected %s", ErrInvalidProof, i, hash, expected)
		}

		expected = ancestor.ParentHash
	}

	if expected != proofHash {
		return fmt.Errorf("%w: ancestral chain ends at %s, header hash is %s", ErrInvalidProof, expected, proofHash)
	}

	return nil
}

// headerHash hashes the header bytes as given, so only the exact encoding
// that was anchored is accepted
func headerHash(raw []byte) types.Hash {
	return types.BytesToHash(keccak.Keccak256(nil, raw))
}

// parsePing extracts sender and source block number from a Ping log
func parsePing(log *types.Log) (types.Address, uint64, error) {
	if len(log.Topics) != 3 {
		return types.ZeroAddress, 0, fmt.Errorf("%w: expected 3 topics, got %d", ErrInvalidEventFormat, len(log.Topics))
	}

	if log.Topics[0] != pingSignature {
		return types.ZeroAddress, 0, fmt.Errorf("%w: unexpected event signature %s", ErrInvalidEventFormat, log.Topics[0])
	}

	if len(log.Data) != 0 {
		return types.ZeroAddress, 0, fmt.Errorf("%w: unexpected %d bytes of event data", ErrInvalidEventFormat, len(log.Data))
	}

	senderTopic := log.Topics[1]
	for _, b := range senderTopic[:types.HashLength-types.AddressLength] {
		if b != 0 {
			return types.ZeroAddress, 0, fmt.Errorf("%w: sender topic %s is not an address", ErrInvalidEventFormat, senderTopic)
		}
	}

	blockNumber := new(big.Int).SetBytes(log.Topics[2].Bytes())
	if !blockNumber.IsUint64() {
		return types.ZeroAddress, 0, fmt.Errorf("%w: block number %s overflows", ErrInvalidEventFormat, blockNumber)
	}

	return types.BytesToAddress(senderTopic[types.HashLength-types.AddressLength:]), blockNumber.Uint64(), nil
}

// Status returns what is recorded for an event id. Unknown ids are
// reported with Received set to false.
func (v *Verifier) Status(_ context.Context, id types.Hash) (*Record, error) {
	rec, err := v.processed.Get(id)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return &Record{}, nil
	}

	return rec, nil
}

// IsProcessed reports whether id was already verified
func (v *Verifier) IsProcessed(id types.Hash) (bool, error) {
	rec, err := v.processed.Get(id)
	if err != nil {
		return false, err
	}

	return rec != nil, nil
}

// IsUnavailable reports whether err means the block is not anchored yet
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTrustedHashUnavailable)
}
