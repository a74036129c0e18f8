package relayer

import (
	"time"

	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/types"
)

// Stage is the position of a ping in the relay pipeline
type Stage int

const (
	// StageSeen is a ping log observed on the source chain
	StageSeen Stage = iota
	// StageAwaitingHeader waits for the oracle to anchor the ping block
	StageAwaitingHeader
	// StageProofReady is anchored and queued for proof generation and submission
	StageProofReady
	// StageSubmitted has a proof handed to the submitter
	StageSubmitted
	// StageConfirmed was accepted by the verifier, or found already processed
	StageConfirmed
	// StageFailed needs operator attention
	StageFailed
)

var stageNames = map[Stage]string{
	StageSeen:           "seen",
	StageAwaitingHeader: "awaiting_header",
	StageProofReady:     "proof_ready",
	StageSubmitted:      "submitted",
	StageConfirmed:      "confirmed",
	StageFailed:         "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Job tracks one ping through the pipeline
type Job struct {
	ID      string     `json:"id"`
	EventID types.Hash `json:"eventId"`
	Stage   Stage      `json:"stage"`

	Sender types.Address `json:"sender"`
	// PingBlockNumber is the block number argument of the Ping event
	PingBlockNumber uint64 `json:"pingBlockNumber"`
	// BlockNumber is the source block holding the Ping log
	BlockNumber uint64     `json:"blockNumber"`
	TxHash      types.Hash `json:"txHash"`
	// LogIndex is the block wide index eth_getLogs reported
	LogIndex uint64 `json:"logIndex"`

	// Duplicate is set when the verifier had already processed the event
	Duplicate bool      `json:"duplicate"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	RetryAt   time.Time `json:"retryAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`

	proof *proof.Proof
}

// IsTerminal reports whether the job will not move without outside action
func (j *Job) IsTerminal() bool {
	return j.Stage == StageConfirmed || (j.Stage == StageFailed && j.RetryAt.IsZero())
}

func (j *Job) setError(err error) {
	if err == nil {
		j.LastError = ""

		return
	}

	j.LastError = err.Error()
}

// snapshot returns a copy safe to hand out of the coordinator loop
func (j *Job) snapshot() Job {
	c := *j
	c.proof = nil

	return c
}
