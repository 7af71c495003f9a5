package link

import (
	"github.com/ValentinKolb/rKV/lib/buffer"
	"github.com/cockroachdb/errors"
)

// Every failure returned by a link is marked with one of these sentinels.
// Test with errors.Is. Transport, protocol and capacity errors are fatal to
// the connection; the caller closes the link.
var (
	ErrConnect   = errors.New("link: connect failed")
	ErrBind      = errors.New("link: bind failed")
	ErrAccept    = errors.New("link: accept failed")
	ErrTransport = errors.New("link: transport failure")
	ErrProtocol  = errors.New("link: protocol violation")
	ErrCapacity  = buffer.ErrCapacity
)

// errWouldBlock is returned by the raw I/O helpers when the socket has no
// data (or no room) yet. It never leaves the package.
var errWouldBlock = errors.New("link: operation would block")

func protocolError(format string, args ...interface{}) error {
	metricProtocolErrors.Inc()
	return errors.Mark(errors.Newf(format, args...), ErrProtocol)
}

func transportError(err error, op string) error {
	return errors.Mark(errors.Wrapf(err, "%s", op), ErrTransport)
}
