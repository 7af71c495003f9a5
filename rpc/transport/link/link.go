package link

import (
	"github.com/ValentinKolb/rKV/lib/buffer"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Logger is the logger of the link package
var Logger = logger.GetLogger("link")

// pollInterval is the read/write deadline used to emulate non-blocking I/O
// on connections without a raw socket
const pollInterval = time.Millisecond

// --------------------------------------------------------------------------
// Link
// --------------------------------------------------------------------------

// Link is one TCP connection (or one listening socket). It owns an input and
// an output buffer and encodes/decodes messages in native or foreign framing.
//
// Thread-safety: A Link carries no internal locking. It must be driven by one
// goroutine at a time.
type Link struct {
	conn     net.Conn
	listener net.Listener
	raw      syscall.RawConn
	cfg      common.LinkConfig

	input  *buffer.Buffer
	output *buffer.Buffer

	blocking bool
	deadline time.Time
	remote   string
	framing  framing
	closed   bool
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// New wraps an established connection. The link starts in blocking mode
// with native framing and near-empty buffers.
func New(conn net.Conn, cfg common.LinkConfig) *Link {
	l := &Link{
		conn:     conn,
		raw:      rawConnOf(conn),
		cfg:      cfg,
		input:    buffer.New(cfg.BufferOptions()),
		output:   buffer.New(cfg.BufferOptions()),
		blocking: true,
		framing:  nativeFraming{},
	}
	if addr := conn.RemoteAddr(); addr != nil {
		l.remote = addr.String()
	}
	metricOpenLinks.Inc()
	return l
}

// Connect dials host:port and returns a configured blocking link. Failures
// are marked with ErrConnect.
func Connect(host string, port int, cfg common.LinkConfig) (*Link, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout())
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "connect to %s", addr), ErrConnect)
	}

	l := New(conn, cfg)
	if err := l.applySocketOptions(); err != nil {
		_ = l.Close()
		return nil, errors.Mark(errors.Wrapf(err, "configure connection to %s", addr), ErrConnect)
	}
	return l, nil
}

// ConnectEndpoint is like Connect but takes a "host:port" endpoint
func ConnectEndpoint(endpoint string, cfg common.LinkConfig) (*Link, error) {
	host, port, err := SplitEndpoint(endpoint)
	if err != nil {
		return nil, errors.Mark(err, ErrConnect)
	}
	return Connect(host, port, cfg)
}

// Listen binds host:port and returns a listening link. Use Accept on it to
// obtain connection links. Failures are marked with ErrBind.
func Listen(host string, port int, cfg common.LinkConfig) (*Link, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "listen on %s", addr), ErrBind)
	}
	return &Link{
		listener: ln,
		cfg:      cfg,
		blocking: true,
		remote:   ln.Addr().String(),
		framing:  nativeFraming{},
	}, nil
}

// Accept waits for the next connection on a listening link. Interrupted
// system calls are retried, every other failure is marked with ErrAccept.
func (l *Link) Accept() (*Link, error) {
	if l.listener == nil {
		return nil, errors.Mark(errors.New("accept on a non-listening link"), ErrAccept)
	}

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return nil, errors.Mark(errors.Wrap(err, "accept"), ErrAccept)
		}

		c := New(conn, l.cfg)
		if err := c.applySocketOptions(); err != nil {
			_ = c.Close()
			return nil, errors.Mark(errors.Wrapf(err, "configure connection from %s", c.remote), ErrAccept)
		}
		return c, nil
	}
}

// applySocketOptions sets no-delay, keep-alive and linger on TCP connections
func (l *Link) applySocketOptions() error {
	tcpConn, ok := l.conn.(*net.TCPConn)
	if !ok {
		return nil // not a TCP connection, nothing to configure
	}

	if err := tcpConn.SetNoDelay(l.cfg.TCPNoDelay); err != nil {
		return err
	}

	if l.cfg.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		period := time.Duration(l.cfg.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(period); err != nil {
			return err
		}
	}

	if l.cfg.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(l.cfg.TCPLingerSec); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Socket options
// --------------------------------------------------------------------------

// SetNonBlocking switches between non-blocking and blocking I/O for Read and
// Write. Response and Request always block.
func (l *Link) SetNonBlocking(enable bool) {
	l.blocking = !enable
}

// NonBlocking reports whether the link is in non-blocking mode
func (l *Link) NonBlocking() bool {
	return !l.blocking
}

// NoDelay enables or disables Nagle's algorithm
func (l *Link) NoDelay(enable bool) error {
	if tcpConn, ok := l.conn.(*net.TCPConn); ok {
		return tcpConn.SetNoDelay(enable)
	}
	return nil
}

// KeepAlive enables or disables TCP keep-alive probes
func (l *Link) KeepAlive(enable bool) error {
	if tcpConn, ok := l.conn.(*net.TCPConn); ok {
		return tcpConn.SetKeepAlive(enable)
	}
	return nil
}

// SetDeadline sets the read and write deadline of the connection. The zero
// value clears it.
func (l *Link) SetDeadline(t time.Time) error {
	if l.conn == nil {
		return nil
	}
	if err := l.conn.SetDeadline(t); err != nil {
		return err
	}
	l.deadline = t
	return nil
}

// pollDeadline is the deadline of one emulated non-blocking call, never
// later than the one set with SetDeadline
func (l *Link) pollDeadline() time.Time {
	poll := time.Now().Add(pollInterval)
	if !l.deadline.IsZero() && l.deadline.Before(poll) {
		return l.deadline
	}
	return poll
}

// pollTimedOut tells a poll without data apart from an expired deadline
func (l *Link) pollTimedOut(err error) bool {
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		return false
	}
	return l.deadline.IsZero() || time.Now().Before(l.deadline)
}

// RemoteAddr returns the peer address, or the bound address of a listening link
func (l *Link) RemoteAddr() string {
	return l.remote
}

// Addr returns the local address of the link
func (l *Link) Addr() net.Addr {
	if l.listener != nil {
		return l.listener.Addr()
	}
	if l.conn != nil {
		return l.conn.LocalAddr()
	}
	return nil
}

// Foreign reports whether the foreign framing has been engaged
func (l *Link) Foreign() bool {
	_, ok := l.framing.(*foreignFraming)
	return ok
}

// Close releases the socket. Buffers are dropped with the link.
func (l *Link) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.listener != nil {
		return l.listener.Close()
	}
	metricClosedLinks.Inc()
	return l.conn.Close()
}

// --------------------------------------------------------------------------
// Raw I/O
// --------------------------------------------------------------------------

// Read receives bytes into the input buffer.
//
// It returns (n, nil) with n >= 1 when data arrived, (0, io.EOF) when the
// peer closed the connection and (0, nil) in non-blocking mode when no data
// is available yet. Any other error is marked with ErrTransport. In
// non-blocking mode Read drains the socket while data remains, in blocking
// mode a single successful receive is enough.
func (l *Link) Read() (int, error) {
	if l.conn == nil || l.closed {
		return 0, errors.Mark(errors.New("read on a closed or listening link"), ErrTransport)
	}

	// allocate lazily, a fresh buffer only holds a few bytes
	if !l.input.Grown() {
		if err := l.input.Grow(); err != nil {
			return 0, err
		}
	}
	l.input.Compact()

	total := 0
	for l.input.Free() > 0 {
		n, err := l.readOnce(l.input.Writable())
		if n > 0 {
			if advErr := l.input.AdvanceWrite(n); advErr != nil {
				return total, advErr
			}
			total += n
		}

		switch {
		case err == nil:
		case errors.Is(err, errWouldBlock):
			return l.countRead(total), nil
		case errors.Is(err, io.EOF):
			if total > 0 {
				return l.countRead(total), nil
			}
			return 0, io.EOF
		default:
			return l.countRead(total), transportError(err, "read")
		}

		if l.blocking {
			break
		}
	}
	return l.countRead(total), nil
}

func (l *Link) countRead(n int) int {
	metricBytesRead.Add(n)
	return n
}

// readOnce performs one receive according to the current mode
func (l *Link) readOnce(p []byte) (int, error) {
	if l.blocking {
		return l.conn.Read(p)
	}
	if l.raw != nil {
		return rawRead(l.raw, p)
	}

	// emulate a non-blocking read with a short deadline
	if err := l.conn.SetReadDeadline(l.pollDeadline()); err != nil {
		return 0, err
	}
	n, err := l.conn.Read(p)
	_ = l.conn.SetReadDeadline(l.deadline)
	if l.pollTimedOut(err) {
		return n, errWouldBlock
	}
	return n, err
}

// Write sends bytes from the output buffer. In non-blocking mode it returns
// as soon as the socket accepts no more data. Errors are marked with
// ErrTransport.
func (l *Link) Write() (int, error) {
	if l.conn == nil || l.closed {
		return 0, errors.Mark(errors.New("write on a closed or listening link"), ErrTransport)
	}

	total := 0
	for !l.output.Empty() {
		n, err := l.writeOnce(l.output.Readable())
		if n > 0 {
			if advErr := l.output.AdvanceRead(n); advErr != nil {
				return total, advErr
			}
			total += n
		}
		if err != nil {
			if errors.Is(err, errWouldBlock) {
				break
			}
			metricBytesWritten.Add(total)
			return total, transportError(err, "write")
		}
		if l.blocking || n == 0 {
			break
		}
	}
	l.output.Compact()
	metricBytesWritten.Add(total)
	return total, nil
}

// writeOnce performs one send according to the current mode
func (l *Link) writeOnce(p []byte) (int, error) {
	if l.blocking {
		return l.conn.Write(p)
	}
	if l.raw != nil {
		return rawWrite(l.raw, p)
	}

	if err := l.conn.SetWriteDeadline(l.pollDeadline()); err != nil {
		return 0, err
	}
	n, err := l.conn.Write(p)
	_ = l.conn.SetWriteDeadline(l.deadline)
	if l.pollTimedOut(err) {
		return n, errWouldBlock
	}
	return n, err
}

// Flush writes until the output buffer is empty. When a non-blocking write
// makes no progress the rest is written blocking.
func (l *Link) Flush() (int, error) {
	if l.conn == nil {
		return 0, errors.Mark(errors.New("flush on a listening link"), ErrTransport)
	}
	total := 0
	for !l.output.Empty() {
		n, err := l.Write()
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 && !l.output.Empty() {
			n, err := l.conn.Write(l.output.Readable())
			if n > 0 {
				_ = l.output.AdvanceRead(n)
				total += n
				metricBytesWritten.Add(n)
			}
			if err != nil {
				return total, transportError(err, "flush")
			}
		}
	}
	return total, nil
}

// OutputLen returns the number of bytes waiting to be written
func (l *Link) OutputLen() int {
	if l.output == nil {
		return 0
	}
	return l.output.Len()
}

// InputLen returns the number of received bytes not parsed yet
func (l *Link) InputLen() int {
	if l.input == nil {
		return 0
	}
	return l.input.Len()
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// Recv parses one unit from the input buffer without doing any I/O.
//
// It returns the values of exactly one complete unit in wire order, or
// (nil, nil) when more bytes are needed. A unit starting with '*' is decoded
// by the foreign framing which then stays engaged for the rest of the link's
// life. Protocol errors are marked with ErrProtocol, a full input buffer
// that cannot grow any further returns an error marked with ErrCapacity.
func (l *Link) Recv() ([][]byte, error) {
	if l.conn == nil {
		return nil, errors.Mark(errors.New("recv on a listening link"), ErrTransport)
	}
	if l.input.Empty() {
		return nil, nil
	}

	var values [][]byte
	var err error
	if l.input.Readable()[0] == '*' {
		if !l.Foreign() {
			Logger.Debugf("engaging foreign framing for %s", l.remote)
			l.framing = newForeignFraming()
		}
		values, err = l.framing.decode(l.input, l.cfg.PacketLimit())
	} else {
		values, err = decodeNative(l.input, l.cfg.PacketLimit())
	}
	if err != nil || values != nil {
		return values, err
	}

	// partial unit: make room for the rest
	if l.input.Free() == 0 {
		l.input.Compact()
		if l.input.Free() == 0 {
			if err := l.input.Grow(); err != nil {
				return nil, errors.Wrapf(err, "input buffer of %s", l.remote)
			}
		}
	}
	return nil, nil
}

// Send appends one message to the output buffer in the active framing. The
// bytes are written by Write or Flush. Sending zero values is a no-op.
func (l *Link) Send(values ...[]byte) error {
	if l.conn == nil {
		return errors.Mark(errors.New("send on a listening link"), ErrTransport)
	}
	if len(values) == 0 {
		return nil
	}
	return l.framing.encode(l.output, values)
}

// SendStrings is Send for string values
func (l *Link) SendStrings(values ...string) error {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	return l.Send(raw...)
}

// Response blocks until one unit has been received, regardless of the
// socket mode.
func (l *Link) Response() ([][]byte, error) {
	for {
		values, err := l.Recv()
		if err != nil {
			return nil, err
		}
		if values != nil {
			return values, nil
		}

		n, err := l.readBlocking()
		if errors.Is(err, io.EOF) {
			return nil, transportError(err, "connection closed before response")
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, transportError(io.ErrUnexpectedEOF, "response")
		}
	}
}

// readBlocking is Read with the link temporarily in blocking mode
func (l *Link) readBlocking() (int, error) {
	if l.blocking {
		return l.Read()
	}
	l.blocking = true
	defer func() { l.blocking = false }()
	return l.Read()
}

// Request sends one message, flushes it and waits for the response
func (l *Link) Request(values ...[]byte) ([][]byte, error) {
	if err := l.Send(values...); err != nil {
		return nil, err
	}
	if _, err := l.Flush(); err != nil {
		return nil, err
	}
	return l.Response()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// SplitEndpoint splits "host:port" into its parts
func SplitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, errors.Newf("invalid port in endpoint %q", endpoint)
	}
	return host, port, nil
}
