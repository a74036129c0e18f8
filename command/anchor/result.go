package anchor

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
)

type AnchorResult struct {
	ChainID     uint64 `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber"`
	BlockHash   string `json:"blockHash"`
	TxHash      string `json:"txHash"`
}

func (r *AnchorResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[HEADER ANCHORED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Chain ID|%d", r.ChainID),
		fmt.Sprintf("Block number|%d", r.BlockNumber),
		fmt.Sprintf("Block hash|%s", r.BlockHash),
		fmt.Sprintf("Transaction|%s", r.TxHash),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
