package proof

import (
	"errors"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/types"
)

const (
	rpcFlag           = "rpc"
	txFlag            = "tx"
	logIndexFlag      = "log-index"
	blockLogIndexFlag = "block-log-index"
	chainIDFlag       = "chain-id"
)

var errTxRequired = errors.New("transaction hash is required")

type proofParams struct {
	rpcURL        string
	rawTxHash     string
	logIndex      uint64
	blockLogIndex bool
	chainID       uint64

	txHash types.Hash
}

func (p *proofParams) validateFlags() (err error) {
	if p.rawTxHash == "" {
		return errTxRequired
	}

	p.txHash, err = helper.ParseHash(p.rawTxHash)

	return err
}
