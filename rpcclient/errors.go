package rpcclient

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrNotFound is returned when the node does not know the requested object
var ErrNotFound = errors.New("not found")

var transientMessages = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"broken pipe",
	"too many requests",
	"429",
	"500 internal server error",
	"502 bad gateway",
	"503 service unavailable",
	"504 gateway timeout",
	"header not found",
	"eof",
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, rate limiting and server side 5xx responses
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}
