package proof

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/proof"
)

type ProofResult struct {
	ChainID        uint64 `json:"chainId"`
	BlockNumber    uint64 `json:"blockNumber"`
	TxIndex        uint64 `json:"txIndex"`
	LogIndex       uint64 `json:"logIndex"`
	ProofNodes     int    `json:"proofNodes"`
	AncestralCount int    `json:"ancestralHeaders"`
	Encoded        string `json:"encoded"`
	Calldata       string `json:"calldata"`
}

func newProofResult(p *proof.Proof) (*ProofResult, error) {
	txIndex, err := p.TransactionIndex()
	if err != nil {
		return nil, err
	}

	calldata, err := p.EncodeAbi()
	if err != nil {
		return nil, err
	}

	return &ProofResult{
		ChainID:        p.ChainID,
		BlockNumber:    p.BlockNumber,
		TxIndex:        txIndex,
		LogIndex:       p.LogIndex,
		ProofNodes:     len(p.ReceiptProof),
		AncestralCount: len(p.AncestralBlockHeaders),
		Encoded:        hex.EncodeToHex(p.MarshalRLP()),
		Calldata:       hex.EncodeToHex(calldata),
	}, nil
}

func (r *ProofResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[PROOF]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Chain ID|%d", r.ChainID),
		fmt.Sprintf("Block number|%d", r.BlockNumber),
		fmt.Sprintf("Transaction index|%d", r.TxIndex),
		fmt.Sprintf("Log index|%d", r.LogIndex),
		fmt.Sprintf("Receipt proof nodes|%d", r.ProofNodes),
		fmt.Sprintf("Ancestral headers|%d", r.AncestralCount),
		fmt.Sprintf("Encoded|%s", r.Encoded),
		fmt.Sprintf("Calldata|%s", r.Calldata),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
