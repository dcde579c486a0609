// Package statsd emits job queue metrics using the DogStatsD line protocol.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxPacketSize keeps datagrams under a typical Ethernet MTU.
const DefaultMaxPacketSize = 1432

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
	// FlushInterval batches lines into datagrams flushed at this period.
	// Zero sends every line as its own datagram.
	FlushInterval time.Duration
	// MaxPacketSize caps a batched datagram. Defaults to DefaultMaxPacketSize.
	MaxPacketSize int
}

// Client emits metrics over UDP.
// It is safe for concurrent use; all methods are no-ops on a nil or disabled client.
type Client struct {
	address    string
	prefix     string
	globalTags map[string]string
	interval   time.Duration
	maxPacket  int
	logger     *slog.Logger

	mu         sync.Mutex
	conn       net.Conn
	buf        []byte
	writeFails int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured StatsD endpoint unless disabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxPacket := cfg.MaxPacketSize
	if maxPacket <= 0 {
		maxPacket = DefaultMaxPacketSize
	}

	client := &Client{
		address:    strings.TrimSpace(cfg.Address),
		prefix:     sanitizePrefix(cfg.Prefix),
		globalTags: cloneTags(cfg.GlobalTags),
		interval:   cfg.FlushInterval,
		maxPacket:  maxPacket,
		logger:     logger.With("component", "statsd"),
	}

	if !cfg.Enabled || client.address == "" {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", client.address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", client.address, err)
	}
	client.conn = conn

	if client.interval > 0 {
		client.buf = make([]byte, 0, maxPacket)
		client.stop = make(chan struct{})
		client.done = make(chan struct{})
		go client.flushLoop(client.stop, client.done)
	}

	return client, nil
}

// Enabled reports whether the client actively emits metrics.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Count increments a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), kindCount, tags)
}

// Gauge records the current value for a gauge metric.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, formatFloat(value), kindGauge, tags)
}

// Timing records a timing metric using milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, formatFloat(ms), kindTiming, tags)
}

// Flush sends any buffered lines now.
func (c *Client) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// Close flushes buffered lines and releases the UDP connection. It is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	// stop and done are set once in NewClient and never reassigned.
	if c.stop != nil {
		c.closeOnce.Do(func() { close(c.stop) })
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.flushLocked()
	err := c.conn.Close()
	c.conn = nil
	return err
}

// WriteFailures returns the number of consecutive failed writes.
func (c *Client) WriteFailures() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFails
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	line := formatLine(c.prefix, name, value, kind, c.globalTags, tags)
	if line == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	if c.interval <= 0 {
		c.send([]byte(line))
		return
	}

	if len(c.buf) > 0 && len(c.buf)+1+len(line) > c.maxPacket {
		c.flushLocked()
	}
	if len(c.buf) > 0 {
		c.buf = append(c.buf, '\n')
	}
	c.buf = append(c.buf, line...)
	if len(c.buf) >= c.maxPacket {
		c.flushLocked()
	}
}

func (c *Client) flushLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Flush()
		}
	}
}

func (c *Client) flushLocked() {
	if len(c.buf) == 0 || c.conn == nil {
		return
	}
	c.send(c.buf)
	c.buf = c.buf[:0]
}

// send writes one datagram; the caller holds c.mu.
func (c *Client) send(payload []byte) {
	if _, err := c.conn.Write(payload); err != nil {
		c.writeFails++
		// UDP writes fail continuously while the agent is down; warn once, then stay quiet.
		if c.writeFails == 1 {
			c.logger.Warn("statsd write failed", "address", c.address, "error", err)
			return
		}
		c.logger.Debug("statsd write failed", "error", err, "failures", c.writeFails)
		return
	}
	c.writeFails = 0
}
