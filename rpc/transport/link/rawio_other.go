//go:build !unix

package link

import (
	"github.com/cockroachdb/errors"
	"net"
	"syscall"
)

// rawConnOf always returns nil, non-blocking links fall back to deadlines.
func rawConnOf(net.Conn) syscall.RawConn {
	return nil
}

func rawRead(syscall.RawConn, []byte) (int, error) {
	return 0, errors.New("raw socket reads are not supported on this platform")
}

func rawWrite(syscall.RawConn, []byte) (int, error) {
	return 0, errors.New("raw socket writes are not supported on this platform")
}
