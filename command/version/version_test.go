package version

import (
	"strings"
	"testing"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionResult(t *testing.T) {
	t.Parallel()

	r := newVersionResult()

	assert.Equal(t, "unknown", r.Commit)
	assert.True(t, strings.HasPrefix(r.GoVersion, "go"))
	assert.Len(t, r.ReceivePing, 10)
	assert.Len(t, r.StoreBlockHeader, 10)
	assert.NotEqual(t, r.GetTrustedHash, r.StoreBlockHeader)
	assert.Equal(t, contractsapi.PingEventType.ID().String(), r.PingTopic)

	out := r.GetOutput()
	require.Contains(t, out, "[CONTRACT INTERFACE]")
	assert.Contains(t, out, "storeBlockHeader = "+r.StoreBlockHeader)
}
