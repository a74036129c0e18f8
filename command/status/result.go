package status

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/types"
)

type StatusResult struct {
	EventID           types.Hash    `json:"eventId"`
	Received          bool          `json:"received"`
	Sender            types.Address `json:"sender"`
	SourceBlockNumber uint64        `json:"sourceBlockNumber"`
}

func (r *StatusResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[EVENT STATUS]\n")

	vals := []string{
		fmt.Sprintf("Event ID|%s", r.EventID),
		fmt.Sprintf("Received|%t", r.Received),
	}

	if r.Received {
		vals = append(vals,
			fmt.Sprintf("Sender|%s", r.Sender),
			fmt.Sprintf("Source block number|%d", r.SourceBlockNumber))
	}

	buffer.WriteString(helper.FormatKV(vals))
	buffer.WriteString("\n")

	return buffer.String()
}
