package verify

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/types"
)

const (
	proofFlag       = "proof"
	trustedHashFlag = "trusted-hash"
	emitterFlag     = "emitter"
)

var errProofRequired = errors.New("proof is required")

type verifyParams struct {
	rawProof       string
	rawTrustedHash string
	rawEmitter     string
	dbBackend      string
	dataDir        string

	proof       *proof.Proof
	trustedHash types.Hash
	emitter     types.Address
}

func (p *verifyParams) validateFlags() (err error) {
	if p.rawProof == "" {
		return errProofRequired
	}

	if p.proof, err = decodeProof(p.rawProof); err != nil {
		return err
	}

	if p.trustedHash, err = helper.ParseHash(p.rawTrustedHash); err != nil {
		return fmt.Errorf("trusted hash: %w", err)
	}

	if p.rawEmitter != "" {
		if p.emitter, err = helper.ParseAddress(p.rawEmitter); err != nil {
			return fmt.Errorf("emitter: %w", err)
		}
	}

	return nil
}

// decodeProof accepts the wire encoding of a proof or receivePing calldata
func decodeProof(raw string) (*proof.Proof, error) {
	buf, err := hex.DecodeHex(raw)
	if err != nil {
		return nil, fmt.Errorf("proof: %w", err)
	}

	p, err := proof.Unpack(buf)
	if err == nil {
		return p, nil
	}

	fromAbi := new(proof.Proof)
	if abiErr := fromAbi.DecodeAbi(buf); abiErr == nil {
		return fromAbi, nil
	}

	return nil, err
}
