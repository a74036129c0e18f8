package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/valyala/fastjson"
)

const defaultReconnectDelay = 5 * time.Second

// HeadNotifier subscribes to newHeads over a websocket and announces every
// new head number to its subscribers
type HeadNotifier struct {
	url            string
	reconnectDelay time.Duration
	logger         hclog.Logger

	subsLock sync.Mutex
	subs     []chan uint64
}

func NewHeadNotifier(url string, logger hclog.Logger) *HeadNotifier {
	return &HeadNotifier{
		url:            url,
		reconnectDelay: defaultReconnectDelay,
		logger:         logger.Named("ws_notifier"),
	}
}

// Subscribe returns a channel receiving head numbers. A slow subscriber
// only sees the latest head rather than blocking the notifier.
func (h *HeadNotifier) Subscribe() <-chan uint64 {
	h.subsLock.Lock()
	defer h.subsLock.Unlock()

	ch := make(chan uint64, 1)
	h.subs = append(h.subs, ch)

	return ch
}

func (h *HeadNotifier) notify(number uint64) {
	h.subsLock.Lock()
	defer h.subsLock.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- number:
		default:
			// replace the stale head
			select {
			case <-ch:
			default:
			}

			ch <- number
		}
	}
}

// Run keeps a subscription open until ctx is canceled, reconnecting
// after failures
func (h *HeadNotifier) Run(ctx context.Context) error {
	for {
		err := h.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		h.logger.Warn("head subscription lost", "url", h.url, "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.reconnectDelay):
		}
	}
}

func (h *HeadNotifier) listen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, h.url, nil)
	if err != nil {
		return err
	}

	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_subscribe",
		"params":  []string{"newHeads"},
	}

	if err := conn.WriteJSON(request); err != nil {
		return err
	}

	var parser fastjson.Parser

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		v, err := parser.ParseBytes(msg)
		if err != nil {
			return err
		}

		if errObj := v.Get("error"); errObj != nil {
			return fmt.Errorf("subscription rejected: %s", errObj.String())
		}

		if id := v.GetStringBytes("result"); id != nil {
			h.logger.Debug("subscribed to new heads", "subscription", string(id))

			continue
		}

		number := v.GetStringBytes("params", "result", "number")
		if number == nil {
			continue
		}

		head, err := hex.DecodeUint64(string(number))
		if err != nil {
			return fmt.Errorf("invalid head number %q: %w", number, err)
		}

		h.notify(head)
	}
}
