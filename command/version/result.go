package version

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/command/helper"
)

// VersionResult describes the build and the contract interface it speaks,
// so operators can check a binary against the deployed receiver and adapter
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`

	ReceivePing      string `json:"receivePingSelector"`
	GetTrustedHash   string `json:"getTrustedHashSelector"`
	StoreBlockHeader string `json:"storeBlockHeaderSelector"`
	PingTopic        string `json:"pingTopic"`
	HashStoredTopic  string `json:"hashStoredTopic"`
}

func (r *VersionResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[PROOF RELAY]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Version|%s", r.Version),
		fmt.Sprintf("Commit|%s", r.Commit),
		fmt.Sprintf("Build time|%s", r.BuildTime),
		fmt.Sprintf("Go|%s %s", r.GoVersion, r.Platform),
	}))
	buffer.WriteString("\n\n[CONTRACT INTERFACE]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("receivePing|%s", r.ReceivePing),
		fmt.Sprintf("getTrustedHash|%s", r.GetTrustedHash),
		fmt.Sprintf("storeBlockHeader|%s", r.StoreBlockHeader),
		fmt.Sprintf("Ping topic|%s", r.PingTopic),
		fmt.Sprintf("HashStored topic|%s", r.HashStoredTopic),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
