//go:build unix

package link

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
	"io"
	"net"
	"syscall"
)

// rawConnOf returns the raw socket of conn, or nil if conn has none
// (e.g. net.Pipe in tests).
func rawConnOf(conn net.Conn) syscall.RawConn {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil
	}
	return raw
}

// rawRead performs a single read(2) on the socket without waiting for
// readiness. Interrupted calls are retried.
func rawRead(raw syscall.RawConn, p []byte) (int, error) {
	var n int
	var opErr error
	err := raw.Read(func(fd uintptr) bool {
		for {
			n, opErr = unix.Read(int(fd), p)
			if opErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}
	switch {
	case opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK:
		return 0, errWouldBlock
	case opErr != nil:
		return 0, errors.Wrap(opErr, "read")
	case n == 0 && len(p) > 0:
		return 0, io.EOF
	}
	return n, nil
}

// rawWrite performs a single write(2) on the socket without waiting for
// writability. Interrupted calls are retried.
func rawWrite(raw syscall.RawConn, p []byte) (int, error) {
	var n int
	var opErr error
	err := raw.Write(func(fd uintptr) bool {
		for {
			n, opErr = unix.Write(int(fd), p)
			if opErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}
	switch {
	case opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK:
		return 0, errWouldBlock
	case opErr != nil:
		return 0, errors.Wrap(opErr, "write")
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
