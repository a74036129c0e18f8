package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadsServer(t *testing.T, heads ...string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		defer conn.Close()

		var req map[string]interface{}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req["method"] != "eth_subscribe" {
			return
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":"0xsub"}`))

		for _, head := range heads {
			msg := `{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xsub","result":{"number":"` + head + `"}}}`
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}

		// hold the connection until the client leaves
		_, _, _ = conn.ReadMessage()
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestHeadNotifier(t *testing.T) {
	t.Parallel()

	srv := newHeadsServer(t, "0x10", "0x11")

	notifier := NewHeadNotifier("ws"+strings.TrimPrefix(srv.URL, "http"), hclog.NewNullLogger())
	heads := notifier.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- notifier.Run(ctx)
	}()

	var seen []uint64

	timeout := time.After(5 * time.Second)

	for len(seen) == 0 || seen[len(seen)-1] != 0x11 {
		select {
		case head := <-heads:
			seen = append(seen, head)
		case <-timeout:
			t.Fatalf("heads not received, got %v", seen)
		}
	}

	assert.Contains(t, seen, uint64(0x11))

	cancel()
	require.NoError(t, <-done)
}
