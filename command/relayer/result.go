package relayer

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/relayer"
)

// RelayerResult lists the pings that were not confirmed on shutdown
type RelayerResult struct {
	Confirmed  int           `json:"confirmed"`
	Unfinished []relayer.Job `json:"unfinished"`
}

func newRelayerResult(jobs []relayer.Job) *RelayerResult {
	r := &RelayerResult{Unfinished: make([]relayer.Job, 0, len(jobs))}

	for _, job := range jobs {
		if job.Stage == relayer.StageConfirmed {
			r.Confirmed++

			continue
		}

		r.Unfinished = append(r.Unfinished, job)
	}

	return r
}

func (r *RelayerResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[RELAYER STOPPED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Confirmed pings|%d", r.Confirmed),
		fmt.Sprintf("Unfinished pings|%d", len(r.Unfinished)),
	}))
	buffer.WriteString("\n")

	if len(r.Unfinished) == 0 {
		return buffer.String()
	}

	rows := make([]string, 0, len(r.Unfinished)+1)
	rows = append(rows, "Event ID|Block|Stage|Attempts|Last error")

	for _, job := range r.Unfinished {
		rows = append(rows, fmt.Sprintf("%s|%d|%s|%d|%s",
			job.EventID, job.BlockNumber, job.Stage, job.Attempts, job.LastError))
	}

	buffer.WriteString("\n[UNFINISHED PINGS]\n")
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
