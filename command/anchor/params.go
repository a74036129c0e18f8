package anchor

import (
	"errors"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/types"
)

const (
	sourceRPCFlag      = "source-rpc"
	destinationRPCFlag = "destination-rpc"
	trustAdapterFlag   = "trust-adapter"
	blockNumberFlag    = "block-number"
	chainIDFlag        = "chain-id"
	privateKeyFlag     = "private-key"
	privateKeyFileFlag = "private-key-file"
)

var (
	errNoBlockNumber = errors.New("--block-number is required")
	errNoPrivateKey  = errors.New("either --private-key or --private-key-file is required")
)

type anchorParams struct {
	sourceRPC       string
	destinationRPC  string
	rawTrustAdapter string
	blockNumber     uint64
	chainID         uint64
	privateKey      string
	privateKeyFile  string

	trustAdapter types.Address
}

func (p *anchorParams) validateFlags() (err error) {
	if p.blockNumber == 0 {
		return errNoBlockNumber
	}

	if p.privateKey == "" && p.privateKeyFile == "" {
		return errNoPrivateKey
	}

	p.trustAdapter, err = helper.ParseAddress(p.rawTrustAdapter)

	return err
}
