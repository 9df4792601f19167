package dali

import (
	"log/slog"
	"time"
)

// clientOptions holds configuration for the DALI client
type clientOptions struct {
	// Request handling
	timeout time.Duration
	retries int

	// Keep-alive
	keepAliveInterval time.Duration

	// Reconnect backoff
	reconnectInitial time.Duration
	reconnectMax     time.Duration

	// Gesture reconstruction
	buttonTimers ButtonTimers

	// Event delivery
	eventBuffer   int
	gestureBuffer int

	// Known input devices, seeded before connect
	knownButtons []ButtonKey

	// Logging
	logger *slog.Logger
}

// defaultOptions returns the default client options
func defaultOptions() *clientOptions {
	return &clientOptions{
		timeout:           1 * time.Second,
		retries:           1,
		keepAliveInterval: 20 * time.Second,
		reconnectInitial:  1 * time.Second,
		reconnectMax:      30 * time.Second,
		buttonTimers:      DefaultButtonTimers,
		eventBuffer:       64,
		gestureBuffer:     64,
		logger:            slog.Default(),
	}
}

// Option is a functional option for configuring the client
type Option func(*clientOptions)

// WithTimeout sets the confirmation timeout for a single transmission
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithRetries sets the number of identical re-sends after a timeout
func WithRetries(n int) Option {
	return func(o *clientOptions) {
		o.retries = n
	}
}

// WithKeepAliveInterval sets the idle interval after which a benign config
// query is sent. It must stay below the gateway's ~30s idle disconnect.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		o.keepAliveInterval = d
	}
}

// WithReconnectBackoff sets the initial and maximum reconnect delays
func WithReconnectBackoff(initial, max time.Duration) Option {
	return func(o *clientOptions) {
		o.reconnectInitial = initial
		o.reconnectMax = max
	}
}

// WithButtonTimers sets the gesture reconstruction thresholds
func WithButtonTimers(t ButtonTimers) Option {
	return func(o *clientOptions) {
		o.buttonTimers = t
	}
}

// WithEventBuffer sets the spontaneous event channel capacity
func WithEventBuffer(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithGestureBuffer sets the gesture channel capacity
func WithGestureBuffer(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.gestureBuffer = n
		}
	}
}

// WithKnownButtons seeds the set of already-provisioned input devices so
// they are not reported as newly seen
func WithKnownButtons(keys ...ButtonKey) Option {
	return func(o *clientOptions) {
		o.knownButtons = append(o.knownButtons, keys...)
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// ScanOptions holds configuration for bus scans
type ScanOptions struct {
	// Low and High bound the short address range, inclusive
	Low  uint8
	High uint8

	// Delay between consecutive queries
	Delay time.Duration
}

// ScanOption is a functional option for bus scans
type ScanOption func(*ScanOptions)

// defaultScanOptions returns default scan options
func defaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Low:   0,
		High:  63,
		Delay: 100 * time.Millisecond,
	}
}

// WithAddressRange bounds the scan to [low, high]
func WithAddressRange(low, high uint8) ScanOption {
	return func(o *ScanOptions) {
		if low <= high && high <= 63 {
			o.Low = low
			o.High = high
		}
	}
}

// WithScanDelay sets the pause between consecutive scan queries
func WithScanDelay(d time.Duration) ScanOption {
	return func(o *ScanOptions) {
		if d >= 0 {
			o.Delay = d
		}
	}
}
