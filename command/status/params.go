package status

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/types"
)

const (
	eventIDFlag     = "event-id"
	chainIDFlag     = "chain-id"
	senderFlag      = "sender"
	blockNumberFlag = "block-number"
)

var (
	errNoEvent           = errors.New("either --event-id or --chain-id, --sender and --block-number are required")
	errPersistentBackend = errors.New("status needs a persistent db backend")
)

type statusParams struct {
	rawEventID  string
	chainID     uint64
	rawSender   string
	blockNumber uint64
	dbBackend   string
	dataDir     string

	eventID types.Hash
}

// validateFlags resolves the event id, either given directly or derived from
// the ping that produced it
func (p *statusParams) validateFlags() (err error) {
	if p.dbBackend == config.DBBackendMemory {
		return errPersistentBackend
	}

	if p.rawEventID != "" {
		p.eventID, err = helper.ParseHash(p.rawEventID)

		return err
	}

	if p.rawSender == "" || p.chainID == 0 {
		return errNoEvent
	}

	sender, err := helper.ParseAddress(p.rawSender)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	p.eventID, err = contractsapi.EventID(p.chainID, sender, p.blockNumber)

	return err
}
