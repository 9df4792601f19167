// Package transport provides the TCP session layer for Foxtron gateways
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned once the transport has been shut down.
var ErrClosed = errors.New("transport: closed")

// ErrNotConnected is returned for writes while the session is down.
var ErrNotConnected = errors.New("transport: not connected")

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 3 * time.Second
	readBufferSize      = 4096
	backoffFactor       = 1.5
)

// TCP maintains one TCP session to a gateway port and supervises it:
// on any socket error it reconnects with capped exponential backoff.
// Inbound bytes are delivered through the OnData callback from a single
// reader goroutine.
type TCP struct {
	addr string

	mu      sync.RWMutex
	conn    net.Conn
	onData  func([]byte)
	onState func(connected bool)

	connected atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	dialTimeout    time.Duration
	writeTimeout   time.Duration
	backoffInitial time.Duration
	backoffMax     time.Duration

	logger *slog.Logger
}

// New creates a TCP transport for the given host:port address.
func New(addr string, backoffInitial, backoffMax time.Duration, logger *slog.Logger) *TCP {
	if logger == nil {
		logger = slog.Default()
	}
	if backoffInitial <= 0 {
		backoffInitial = time.Second
	}
	if backoffMax < backoffInitial {
		backoffMax = 30 * time.Second
	}
	return &TCP{
		addr:           addr,
		done:           make(chan struct{}),
		dialTimeout:    defaultDialTimeout,
		writeTimeout:   defaultWriteTimeout,
		backoffInitial: backoffInitial,
		backoffMax:     backoffMax,
		logger:         logger,
	}
}

// SetOnData registers the inbound byte callback. Must be set before Open.
func (t *TCP) SetOnData(fn func([]byte)) {
	t.mu.Lock()
	t.onData = fn
	t.mu.Unlock()
}

// SetOnStateChange registers the session up/down callback. Must be set
// before Open.
func (t *TCP) SetOnStateChange(fn func(connected bool)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

// Open dials the gateway and starts the session supervisor. The first dial
// happens synchronously; reconnects after that run in the background.
func (t *TCP) Open(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr, err)
	}
	t.setConn(conn)
	t.notifyState(true)

	t.wg.Add(1)
	go t.supervise(conn)
	return nil
}

// Close shuts the transport down permanently.
func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.done)
		t.mu.Lock()
		if t.conn != nil {
			t.conn.Close()
		}
		t.mu.Unlock()
	})
	t.wg.Wait()
	return nil
}

// Write sends bytes over the current session.
func (t *TCP) Write(data []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil || !t.connected.Load() {
		return ErrNotConnected
	}

	if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	n, err := conn.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial write: %d of %d bytes", n, len(data))
	}
	return nil
}

// IsConnected reports whether the session is currently up.
func (t *TCP) IsConnected() bool {
	return t.connected.Load()
}

// Addr returns the configured gateway address.
func (t *TCP) Addr() string {
	return t.addr
}

func (t *TCP) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: t.dialTimeout}
	return d.DialContext(ctx, "tcp", t.addr)
}

func (t *TCP) setConn(conn net.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.connected.Store(conn != nil)
}

func (t *TCP) notifyState(connected bool) {
	t.mu.RLock()
	fn := t.onState
	t.mu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}

// supervise runs the read loop for one session and, when it fails,
// reconnects with capped exponential backoff until Close.
func (t *TCP) supervise(conn net.Conn) {
	defer t.wg.Done()

	for {
		t.readLoop(conn)

		t.setConn(nil)
		t.notifyState(false)
		if t.closed.Load() {
			return
		}

		var err error
		conn, err = t.reconnect()
		if err != nil {
			return
		}
		t.setConn(conn)
		t.notifyState(true)
	}
}

// readLoop pumps inbound bytes to the OnData callback until the socket
// errors out.
func (t *TCP) readLoop(conn net.Conn) {
	t.mu.RLock()
	onData := t.onData
	t.mu.RUnlock()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 && onData != nil {
			data := make([]byte, n)
			copy(data, buf[:n])
			onData(data)
		}
		if err != nil {
			if !t.closed.Load() {
				t.logger.Warn("session lost", "addr", t.addr, "error", err)
			}
			conn.Close()
			return
		}
	}
}

// reconnect retries the dial until it succeeds or the transport closes.
func (t *TCP) reconnect() (net.Conn, error) {
	delay := t.backoffInitial
	for attempt := 1; ; attempt++ {
		select {
		case <-t.done:
			return nil, ErrClosed
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.dialTimeout)
		conn, err := t.dial(ctx)
		cancel()
		if err == nil {
			t.logger.Info("session restored", "addr", t.addr, "attempt", attempt)
			return conn, nil
		}
		t.logger.Warn("reconnect failed", "addr", t.addr, "attempt", attempt, "retry_in", delay, "error", err)

		delay = time.Duration(float64(delay) * backoffFactor)
		if delay > t.backoffMax {
			delay = t.backoffMax
		}
	}
}
