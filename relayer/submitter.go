package relayer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/txrelayer"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"github.com/umbracle/ethgo"
)

var (
	errReverted = errors.New("execution reverted")
	errTxFailed = errors.New("transaction failed")
)

// revertReasons maps receiver revert messages to verifier errors
var revertReasons = []struct {
	reason string
	err    error
}{
	{"already processed", verifier.ErrAlreadyProcessed},
	{"trusted hash unavailable", verifier.ErrTrustedHashUnavailable},
	{"block hash not available", verifier.ErrTrustedHashUnavailable},
	{"invalid event", verifier.ErrInvalidEventFormat},
	{"invalid proof", verifier.ErrInvalidProof},
}

// Submitter hands a proof to the verifier. Outcomes are reported with the
// verifier errors: nil, verifier.ErrAlreadyProcessed and
// verifier.ErrTrustedHashUnavailable are understood by the coordinator.
type Submitter interface {
	Submit(ctx context.Context, p *proof.Proof) error
}

var (
	_ Submitter = (*LocalSubmitter)(nil)
	_ Submitter = (*ChainSubmitter)(nil)
)

// LocalSubmitter verifies proofs with an in-process verifier
type LocalSubmitter struct {
	verifier *verifier.Verifier
}

func NewLocalSubmitter(v *verifier.Verifier) *LocalSubmitter {
	return &LocalSubmitter{verifier: v}
}

func (l *LocalSubmitter) Submit(ctx context.Context, p *proof.Proof) error {
	_, err := l.verifier.Receive(ctx, p)

	return err
}

// ChainSubmitter sends receivePing transactions to the destination receiver.
// Every submission is preflighted with eth_call so reverts are decoded
// before any gas is spent.
type ChainSubmitter struct {
	relayer  txrelayer.TxRelayer
	receiver types.Address
	key      ethgo.Key
	logger   hclog.Logger
}

func NewChainSubmitter(relayer txrelayer.TxRelayer, receiver types.Address, key ethgo.Key, logger hclog.Logger) *ChainSubmitter {
	return &ChainSubmitter{
		relayer:  relayer,
		receiver: receiver,
		key:      key,
		logger:   logger.Named("chain_submitter"),
	}
}

func (c *ChainSubmitter) Submit(ctx context.Context, p *proof.Proof) error {
	input, err := p.EncodeAbi()
	if err != nil {
		return fmt.Errorf("%w: %w", verifier.ErrInvalidProof, err)
	}

	from := types.Address(c.key.Address())

	if err := c.preflight(ctx, from, input); err != nil {
		return err
	}

	receiver := c.receiver.ToEthgo()
	txn := &ethgo.Transaction{
		From:  c.key.Address(),
		To:    &receiver,
		Input: input,
	}

	receipt, err := c.relayer.SendTransaction(ctx, txn, c.key)
	if err != nil {
		return err
	}

	if receipt.Status == uint64(types.ReceiptSuccess) {
		c.logger.Debug("receivePing included", "tx", receipt.TransactionHash, "block", receipt.BlockNumber)

		return nil
	}

	// another relayer may have won between the preflight and inclusion,
	// replaying the call recovers the revert reason
	if err := c.preflight(ctx, from, input); err != nil {
		return err
	}

	return fmt.Errorf("%w: %s", errTxFailed, receipt.TransactionHash)
}

func (c *ChainSubmitter) preflight(ctx context.Context, from types.Address, input []byte) error {
	if _, err := c.relayer.Call(ctx, from, c.receiver, input); err != nil {
		return revertError(err)
	}

	return nil
}

// revertError maps an eth_call error to the verifier error its revert reason
// names. Errors that are not reverts are returned unchanged.
func revertError(err error) error {
	if !isRevert(err) {
		return err
	}

	msg := strings.ToLower(err.Error())

	for _, r := range revertReasons {
		if strings.Contains(msg, r.reason) {
			return fmt.Errorf("%w: %w", r.err, err)
		}
	}

	return fmt.Errorf("%w: %w", errReverted, err)
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}
