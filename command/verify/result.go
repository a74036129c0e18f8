package verify

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/types"
)

type VerifyResult struct {
	EventID           types.Hash    `json:"eventId"`
	ChainID           uint64        `json:"chainId"`
	Emitter           types.Address `json:"emitter"`
	Sender            types.Address `json:"sender"`
	SourceBlockNumber uint64        `json:"sourceBlockNumber"`
}

func (r *VerifyResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[PROOF VERIFIED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Event ID|%s", r.EventID),
		fmt.Sprintf("Chain ID|%d", r.ChainID),
		fmt.Sprintf("Emitter|%s", r.Emitter),
		fmt.Sprintf("Sender|%s", r.Sender),
		fmt.Sprintf("Source block number|%d", r.SourceBlockNumber),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
