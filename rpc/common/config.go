package common

import (
	"fmt"
	"github.com/ValentinKolb/rKV/lib/buffer"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Formatting helpers
// --------------------------------------------------------------------------

// section collects aligned "name: value" lines grouped under upper-case titles
type section struct {
	sb strings.Builder
}

func (s *section) add(title string) {
	s.sb.WriteString("\n")
	s.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (s *section) field(name, value string) {
	s.sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024 && n%(1024*1024) == 0:
		return fmt.Sprintf("%d MiB", n/(1024*1024))
	case n >= 1024 && n%1024 == 0:
		return fmt.Sprintf("%d KiB", n/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// --------------------------------------------------------------------------
// Link configuration struct
// --------------------------------------------------------------------------

// DefaultMaxPacketSize is the largest unit a link accepts (32 MiB)
const DefaultMaxPacketSize = 32 * 1024 * 1024

// LinkConfig holds the per-connection settings of a link. It is passed
// explicitly to every link constructor.
type LinkConfig struct {
	// Buffer sizes
	InitialBufferSize int // capacity of a fresh buffer
	MinBufferSize     int // capacity after the first growth
	MaxBufferSize     int // hard ceiling for both buffers
	MaxPacketSize     int // largest accepted unit

	// Socket options
	TCPNoDelay        bool
	TCPKeepAliveSec   int // <= 0 disables keep-alive
	TCPLingerSec      int // < 0 keeps the OS default
	DialTimeoutSecond int
}

// DefaultLinkConfig returns the settings used when nothing else is configured
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		InitialBufferSize: buffer.DefaultInitial,
		MinBufferSize:     buffer.DefaultMin,
		MaxBufferSize:     buffer.DefaultMax,
		MaxPacketSize:     DefaultMaxPacketSize,
		TCPNoDelay:        true,
		TCPKeepAliveSec:   60,
		TCPLingerSec:      -1,
		DialTimeoutSecond: 5,
	}
}

// BufferOptions converts the buffer sizes into buffer.Options
func (c LinkConfig) BufferOptions() buffer.Options {
	return buffer.Options{
		Initial: c.InitialBufferSize,
		Min:     c.MinBufferSize,
		Max:     c.MaxBufferSize,
	}
}

// PacketLimit returns the effective maximum unit size
func (c LinkConfig) PacketLimit() int {
	if c.MaxPacketSize <= 0 {
		return DefaultMaxPacketSize
	}
	return c.MaxPacketSize
}

// DialTimeout returns the connect timeout, zero means no timeout
func (c LinkConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSecond) * time.Second
}

func (c LinkConfig) writeTo(s *section) {
	s.add("Link")
	s.field("Initial Buffer", formatBytes(c.InitialBufferSize))
	s.field("Min Buffer", formatBytes(c.MinBufferSize))
	s.field("Max Buffer", formatBytes(c.MaxBufferSize))
	s.field("Max Packet", formatBytes(c.PacketLimit()))
	s.field("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	s.field("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	s.field("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	s.field("Dial Timeout", fmt.Sprintf("%d sec", c.DialTimeoutSecond))
}

// String returns a formatted string representation of the link configuration
func (c LinkConfig) String() string {
	var s section
	c.writeTo(&s)
	return s.sb.String()
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// EngineType selects the storage engine of a node
type EngineType string

const (
	EnginePebble EngineType = "pebble"
	EngineMemory EngineType = "memory"
)

// ServerConfig holds all configuration parameters of a node server
type ServerConfig struct {
	// Network
	Endpoint        string
	MetricsEndpoint string // empty disables the metrics listener
	TimeoutSecond   int64  // idle read timeout per connection, 0 disables it

	// Storage
	Engine  EngineType
	DataDir string

	// Logging configuration
	LogLevel string

	Link LinkConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var s section

	s.add("Server")
	s.field("Endpoint", c.Endpoint)
	if c.MetricsEndpoint != "" {
		s.field("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		s.field("Metrics Endpoint", "disabled")
	}
	s.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	s.add("Storage")
	s.field("Engine", string(c.Engine))
	if c.Engine == EnginePebble {
		s.field("Data Directory", c.DataDir)
	}

	s.add("Logging")
	s.field("Log Level", c.LogLevel)

	c.Link.writeTo(&s)
	return s.sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	TimeoutSecond int
	RetryCount    int

	Link LinkConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var s section

	s.add("Client Configuration")
	s.field("Endpoint", c.Endpoint)
	s.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	s.field("Retry Count", strconv.Itoa(c.RetryCount))

	c.Link.writeTo(&s)
	return s.sb.String()
}
