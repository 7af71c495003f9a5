package client

import (
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport/link"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
	"sync"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ErrClosed is returned by every call on a closed client
var ErrClosed = errors.New("client: closed")

// rpcClientAdapter owns the link to one node and serializes the exchanges on it
type rpcClientAdapter struct {
	config common.ClientConfig

	mu     sync.Mutex
	link   *link.Link
	closed bool
}

// connect dials the endpoint unless a link is open. Caller holds mu.
func (a *rpcClientAdapter) connect() error {
	if a.link != nil {
		return nil
	}
	l, err := link.ConnectEndpoint(a.config.Endpoint, a.config.Link)
	if err != nil {
		return err
	}
	a.link = l
	return nil
}

// drop closes the link after a failure; the next call reconnects. Caller holds mu.
func (a *rpcClientAdapter) drop() {
	if a.link != nil {
		_ = a.link.Close()
		a.link = nil
	}
}

// invokeRPCRequest sends one request and returns the values of an ok or
// not_found reply. Connection failures are retried RetryCount times on a
// fresh link. error and client_error replies become *store.Error values
// marked with common.ErrReply.
func (a *rpcClientAdapter) invokeRPCRequest(req [][]byte) (common.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return common.Reply{}, ErrClosed
	}

	var lastErr error
	for attempt := 0; attempt <= a.config.RetryCount; attempt++ {
		if attempt > 0 {
			Logger.Debugf("retrying %s on %s (attempt %d): %v", req[0], a.config.Endpoint, attempt, lastErr)
		}
		if err := a.connect(); err != nil {
			lastErr = err
			continue
		}
		if a.config.TimeoutSecond > 0 {
			_ = a.link.SetDeadline(time.Now().Add(time.Duration(a.config.TimeoutSecond) * time.Second))
		}

		msg, err := a.link.Request(req...)
		if err != nil {
			// the stream position is unknown after any failure
			a.drop()
			lastErr = err
			continue
		}
		if a.config.TimeoutSecond > 0 {
			_ = a.link.SetDeadline(time.Time{})
		}

		reply, err := common.ParseReply(msg)
		if err != nil {
			return common.Reply{}, err
		}
		return reply, replyError(reply)
	}
	return common.Reply{}, errors.Wrapf(lastErr, "%s on %s", req[0], a.config.Endpoint)
}

// replyError converts an error reply into a typed store error
func replyError(reply common.Reply) error {
	if reply.Err() == nil {
		return nil
	}
	parts := make([]string, len(reply.Values))
	for i, v := range reply.Values {
		parts[i] = string(v)
	}
	msg := strings.Join(parts, " ")

	code := store.RetCInternalError
	if reply.Status == common.StatusClientError {
		code = store.RetCInvalidOperation
	}
	return errors.Mark(store.NewError(code, msg), common.ErrReply)
}

func (a *rpcClientAdapter) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.drop()
	return nil
}
