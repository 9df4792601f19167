package dali

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxgrid/dalinet/dali/internal/transport"
)

// ConnectionState represents the client connection state
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Transport is the byte-stream session the client drives. The production
// implementation lives in internal/transport.
type Transport interface {
	Open(ctx context.Context) error
	Close() error
	Write(data []byte) error
	SetOnData(func([]byte))
	SetOnStateChange(func(connected bool))
	IsConnected() bool
}

// Event is a spontaneous bus message with arrival metadata. Input is set
// when the carried DALI frame is a 24-bit input notification.
type Event struct {
	Message Message
	Time    time.Time
	Input   *InputNotification
}

// Confirmation is the gateway's directed confirmation of a sent command.
type Confirmation struct {
	// Answered reports that a backward answer came over the bus.
	Answered bool
	// Answer holds the answer bytes; nil on collision or no answer.
	Answer []byte
	// Collision reports that an answer started but was corrupted by
	// colliding transmitters. A valid outcome, not an error.
	Collision bool
	// Echo is the command echo from a no-answer confirmation.
	Echo []byte
	// Value carries the item value for configuration queries.
	Value uint16
}

// AnswerByte returns the single-byte answer common to most queries.
func (c Confirmation) AnswerByte() (uint8, bool) {
	if !c.Answered || c.Collision || len(c.Answer) != 1 {
		return 0, false
	}
	return c.Answer[0], true
}

type pendingKind uint8

const (
	pendingDali pendingKind = iota
	pendingConfigQuery
	pendingConfigChange
	pendingFirmware
)

// transmission is one frame awaiting its directed confirmation.
type transmission struct {
	frame        []byte // encoded wire frame, re-sent verbatim on retry
	kind         pendingKind
	item         uint8
	block        uint16
	expectAnswer bool
}

type txResult struct {
	conf Confirmation
	err  error
}

type reqResult struct {
	confs []Confirmation
	err   error
}

// pendingRequest is one queued call. Multi-transmission requests carry a
// command sequence and are served back to back so no other caller can
// interleave with an open sequence.
type pendingRequest struct {
	ctx      context.Context
	txs      []transmission
	resolved chan txResult
	done     chan reqResult
}

// Client drives one Foxtron gateway port: it owns the single logical
// request/response channel, separates directed confirmations from
// spontaneous traffic, reconstructs button gestures, and keeps the session
// alive across the gateway's idle disconnect.
type Client struct {
	opts      *clientOptions
	transport Transport

	state atomic.Int32

	// Single-outstanding correlation slot, owned by the writer goroutine
	// and read by the dispatcher.
	currentMu sync.Mutex
	current   *pendingRequest
	currentTx *transmission

	requests chan *pendingRequest
	inbound  chan []byte
	inputs   chan InputNotification
	events   chan Event
	gestures chan Gesture

	// Session epoch: sessionDown closes when the transport drops.
	sessionMu   sync.Mutex
	sessionDown chan struct{}
	sessionUp   chan struct{}

	// Input devices seen on the bus but absent from the known set.
	buttonsMu sync.Mutex
	known     map[ButtonKey]struct{}
	newlySeen map[ButtonKey]struct{}

	health  *GatewayHealth
	metrics *Metrics
	logger  *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a client for the gateway at addr (host:port; ports 23
// and 24 map to bus 1 and 2).
func NewClient(addr string, opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	tr := transport.New(addr, options.reconnectInitial, options.reconnectMax, options.logger)
	return newClient(tr, options)
}

// NewClientWithTransport creates a client over a caller-supplied transport.
func NewClientWithTransport(tr Transport, opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newClient(tr, options)
}

func newClient(tr Transport, options *clientOptions) *Client {
	c := &Client{
		opts:        options,
		transport:   tr,
		requests:    make(chan *pendingRequest, 32),
		inbound:     make(chan []byte, 64),
		inputs:      make(chan InputNotification, 64),
		events:      make(chan Event, options.eventBuffer),
		gestures:    make(chan Gesture, options.gestureBuffer),
		sessionDown: make(chan struct{}),
		sessionUp:   make(chan struct{}),
		known:       make(map[ButtonKey]struct{}),
		newlySeen:   make(map[ButtonKey]struct{}),
		health:      &GatewayHealth{},
		metrics:     NewMetrics(),
		logger:      options.logger,
		done:        make(chan struct{}),
	}
	for _, key := range options.knownButtons {
		c.known[key] = struct{}{}
	}
	return c
}

// Connect opens the gateway session and starts the client goroutines.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	c.metrics.ConnectAttempts.Inc()

	c.transport.SetOnData(c.onData)
	c.transport.SetOnStateChange(c.onStateChange)

	if err := c.transport.Open(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		c.metrics.ConnectFailures.Inc()
		return fmt.Errorf("open transport: %w", err)
	}

	c.state.Store(int32(StateConnected))
	c.metrics.ConnectSuccesses.Inc()
	c.metrics.RecordActivity()

	c.wg.Add(3)
	go c.writer()
	go c.dispatcher()
	go c.gestureLoop()
	if c.opts.keepAliveInterval > 0 {
		c.wg.Add(1)
		go c.keepAliveLoop()
	}

	c.logger.Info("connected")
	return nil
}

// Close shuts the client down. Pending and queued requests fail with
// ErrConnectionClosed.
func (c *Client) Close() error {
	if c.state.Load() == int32(StateDisconnected) {
		return nil
	}
	c.state.Store(int32(StateDisconnected))
	c.metrics.Disconnects.Inc()

	c.stopOnce.Do(func() { close(c.done) })
	err := c.transport.Close()
	c.wg.Wait()

	c.logger.Info("disconnected")
	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Metrics returns the client metrics
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Health returns the gateway health tracker
func (c *Client) Health() *GatewayHealth {
	return c.health
}

// Events returns the spontaneous bus message stream. Slow consumers drop
// messages rather than stall the reader.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Gestures returns the reconstructed button gesture stream.
func (c *Client) Gestures() <-chan Gesture {
	return c.gestures
}

// transport callbacks

func (c *Client) onData(data []byte) {
	c.metrics.BytesReceived.Add(int64(len(data)))
	c.metrics.RecordActivity()
	select {
	case c.inbound <- data:
	case <-c.done:
	}
}

func (c *Client) onStateChange(connected bool) {
	c.sessionMu.Lock()
	if connected {
		close(c.sessionUp)
		c.sessionUp = make(chan struct{})
		c.sessionDown = make(chan struct{})
	} else {
		close(c.sessionDown)
	}
	c.sessionMu.Unlock()

	if connected {
		if c.state.CompareAndSwap(int32(StateReconnecting), int32(StateConnected)) {
			c.metrics.Reconnects.Inc()
			c.metrics.RecordActivity()
		}
	} else {
		c.state.CompareAndSwap(int32(StateConnected), int32(StateReconnecting))
	}
}

func (c *Client) sessionChans() (down, up chan struct{}) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.sessionDown, c.sessionUp
}

// writer serves queued requests strictly in arrival order, one at a time.
func (c *Client) writer() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			c.failQueued()
			return
		case req := <-c.requests:
			c.metrics.QueuedRequests.Dec()
			c.serve(req)
		}
	}
}

func (c *Client) failQueued() {
	for {
		select {
		case req := <-c.requests:
			c.metrics.QueuedRequests.Dec()
			req.done <- reqResult{err: ErrConnectionClosed}
		default:
			return
		}
	}
}

func (c *Client) serve(req *pendingRequest) {
	confs := make([]Confirmation, 0, len(req.txs))
	for i := range req.txs {
		conf, err := c.serveTx(req, &req.txs[i])
		if err != nil {
			if i > 0 {
				// A sequence was left open; tell the gateway to drop it.
				c.abortSequence()
			}
			req.done <- reqResult{err: err}
			return
		}
		confs = append(confs, conf)
	}
	req.done <- reqResult{confs: confs}
}

// serveTx transmits one frame and awaits its directed confirmation,
// re-sending the identical frame on timeout up to the retry bound.
func (c *Client) serveTx(req *pendingRequest, tx *transmission) (Confirmation, error) {
	select {
	case <-req.ctx.Done():
		return Confirmation{}, req.ctx.Err()
	default:
	}

	attempts := c.opts.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		down, up := c.sessionChans()
		if !c.transport.IsConnected() {
			// Drain until the supervisor restores the session, then
			// transmit. Only a drop mid-await fails the caller.
			select {
			case <-up:
			case <-req.ctx.Done():
				return Confirmation{}, req.ctx.Err()
			case <-c.done:
				return Confirmation{}, ErrConnectionClosed
			}
			down, _ = c.sessionChans()
		}

		c.setCurrent(req, tx)
		start := time.Now()
		if err := c.transport.Write(tx.frame); err != nil {
			c.clearCurrent()
			c.metrics.RequestsFailed.Inc()
			return Confirmation{}, fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}
		c.metrics.BytesSent.Add(int64(len(tx.frame)))
		c.metrics.RequestsSent.Inc()
		c.metrics.RecordActivity()
		if attempt > 0 {
			c.metrics.RequestsRetried.Inc()
		}

		timer := time.NewTimer(c.opts.timeout)
		select {
		case res := <-req.resolved:
			timer.Stop()
			if res.err != nil {
				c.metrics.RequestsFailed.Inc()
				return Confirmation{}, res.err
			}
			c.metrics.RequestsSucceeded.Inc()
			c.metrics.RequestLatency.Record(time.Since(start))
			c.health.recordRoundTrip(time.Since(start))
			return res.conf, nil

		case <-timer.C:
			c.clearCurrent()
			// A confirmation may have raced the timeout.
			select {
			case res := <-req.resolved:
				if res.err != nil {
					c.metrics.RequestsFailed.Inc()
					return Confirmation{}, res.err
				}
				c.metrics.RequestsSucceeded.Inc()
				return res.conf, nil
			default:
			}

		case <-req.ctx.Done():
			timer.Stop()
			c.clearCurrent()
			return Confirmation{}, req.ctx.Err()

		case <-down:
			timer.Stop()
			c.clearCurrent()
			c.metrics.RequestsFailed.Inc()
			return Confirmation{}, ErrConnectionLost

		case <-c.done:
			timer.Stop()
			c.clearCurrent()
			return Confirmation{}, ErrConnectionClosed
		}
	}

	c.metrics.RequestsTimedOut.Inc()
	c.health.recordTimeout()
	return Confirmation{}, ErrTimeout
}

// abortSequence recovers from a command sequence left open mid-way.
func (c *Client) abortSequence() {
	payload, err := Marshal(SequenceEnd{})
	if err != nil {
		return
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return
	}
	if err := c.transport.Write(frame); err != nil {
		c.logger.Warn("sequence abort failed", "error", err)
		return
	}
	c.metrics.BytesSent.Add(int64(len(frame)))
	c.metrics.RecordActivity()
}

func (c *Client) setCurrent(req *pendingRequest, tx *transmission) {
	c.currentMu.Lock()
	c.current, c.currentTx = req, tx
	c.currentMu.Unlock()
}

func (c *Client) clearCurrent() {
	c.currentMu.Lock()
	c.current, c.currentTx = nil, nil
	c.currentMu.Unlock()
}

// awaiting reports whether a request holds the correlation slot.
func (c *Client) awaiting() bool {
	c.currentMu.Lock()
	defer c.currentMu.Unlock()
	return c.current != nil
}

// resolveCurrent delivers a confirmation to the outstanding transmission if
// msg is its directed confirmation. Returns false when the message is
// spontaneous traffic.
func (c *Client) resolveCurrent(msg Message) bool {
	c.currentMu.Lock()
	defer c.currentMu.Unlock()
	if c.current == nil {
		return false
	}

	res, ok := matchConfirmation(c.currentTx, msg)
	if !ok {
		return false
	}
	c.current.resolved <- res
	c.current, c.currentTx = nil, nil
	return true
}

// matchConfirmation decides whether msg confirms tx and builds the result.
func matchConfirmation(tx *transmission, msg Message) (txResult, bool) {
	switch tx.kind {
	case pendingDali:
		switch m := msg.(type) {
		case RecvAnswerDiff:
			conf := Confirmation{Answered: true, Collision: m.Collision()}
			if !m.Collision() {
				conf.Answer = m.Answer
			}
			return txResult{conf: conf}, true
		case RecvNoAnswerDiff:
			return txResult{conf: Confirmation{Echo: m.Command}}, true
		}

	case pendingConfigQuery:
		if m, ok := msg.(ConfigResponse); ok && m.Item == tx.item {
			return txResult{conf: Confirmation{Answered: true, Value: m.Value}}, true
		}

	case pendingConfigChange:
		if m, ok := msg.(ConfigAck); ok && m.Item == tx.item {
			if m.Status != ConfigAckOK {
				return txResult{err: &ConfigAckError{Item: m.Item, Status: m.Status}}, true
			}
			return txResult{conf: Confirmation{Answered: true}}, true
		}

	case pendingFirmware:
		if m, ok := msg.(FirmwareAck); ok {
			if m.Status != 0 {
				return txResult{err: &FirmwareError{Block: tx.block, Status: m.Status}}, true
			}
			return txResult{conf: Confirmation{Answered: true}}, true
		}
	}
	return txResult{}, false
}

// dispatcher is the sole consumer of inbound bytes: it reassembles frames,
// classifies them, resolves the correlation slot, and routes the rest to
// the spontaneous sinks.
func (c *Client) dispatcher() {
	defer c.wg.Done()
	var fb frameBuffer
	for {
		select {
		case <-c.done:
			return
		case data := <-c.inbound:
			fb.Append(data)
			for {
				frame := fb.Next()
				if frame == nil {
					break
				}
				c.handleFrame(frame)
			}
		}
	}
}

func (c *Client) handleFrame(frame []byte) {
	c.metrics.FramesReceived.Inc()

	payload, err := DecodeFrame(frame)
	if err != nil {
		c.metrics.FramesMalformed.Inc()
		c.logger.Debug("discarding frame", "error", err)
		return
	}
	msg, err := Classify(payload)
	if err != nil {
		c.metrics.FramesMalformed.Inc()
		c.logger.Debug("discarding payload", "error", err)
		return
	}

	if c.resolveCurrent(msg) {
		c.metrics.ConfirmsReceived.Inc()
		return
	}
	c.routeSpontaneous(msg)
}

func (c *Client) routeSpontaneous(msg Message) {
	c.metrics.SpontaneousEvents.Inc()
	ev := Event{Message: msg, Time: time.Now()}

	switch m := msg.(type) {
	case SpecialEvent:
		c.metrics.SpecialEvents.Inc()
		c.health.recordSpecial(m, ev.Time)
		if m.Code.Fault() {
			c.logger.Warn("gateway fault", "event", m.Code.String())
		}

	case RecvAnswerSpont:
		c.metrics.AnswersReceived.Inc()
		if m.Collision() {
			c.metrics.CollisionsSeen.Inc()
		}
		ev.Input = c.decodeInput(m.Frame, m.Bits)

	case RecvNoAnswerSpont:
		if m.FramingError() {
			c.logger.Debug("bus framing error observed")
		}
		ev.Input = c.decodeInput(m.Frame, m.Bits)
	}

	select {
	case c.events <- ev:
	default:
		c.metrics.EventsDropped.Inc()
	}
}

// decodeInput feeds 24-bit frames to the gesture machinery and the
// newly-seen tracker.
func (c *Client) decodeInput(frame []byte, bits uint8) *InputNotification {
	if bits != 24 {
		return nil
	}
	n, err := DecodeInputNotification(frame)
	if err != nil {
		return nil
	}

	c.trackButton(n.Key())

	select {
	case c.inputs <- n:
	default:
		c.metrics.GesturesDropped.Inc()
	}
	return &n
}

func (c *Client) trackButton(key ButtonKey) {
	c.buttonsMu.Lock()
	defer c.buttonsMu.Unlock()
	if _, ok := c.known[key]; ok {
		return
	}
	if _, ok := c.newlySeen[key]; ok {
		return
	}
	c.newlySeen[key] = struct{}{}
	c.logger.Info("new input device seen", "button", key.String())
}

// NewlySeenButtons lists input devices observed on the bus that were not in
// the known set, sorted for stable output.
func (c *Client) NewlySeenButtons() []ButtonKey {
	c.buttonsMu.Lock()
	defer c.buttonsMu.Unlock()
	keys := make([]ButtonKey, 0, len(c.newlySeen))
	for key := range c.newlySeen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.Instance < b.Instance
	})
	return keys
}

// ClearNewlySeenButtons empties the newly-seen set.
func (c *Client) ClearNewlySeenButtons() {
	c.buttonsMu.Lock()
	c.newlySeen = make(map[ButtonKey]struct{})
	c.buttonsMu.Unlock()
}

// AddKnownButton marks a button as provisioned so it is not reported again.
func (c *Client) AddKnownButton(key ButtonKey) {
	c.buttonsMu.Lock()
	c.known[key] = struct{}{}
	delete(c.newlySeen, key)
	c.buttonsMu.Unlock()
}

// gestureLoop drives the gesture decoder from the input stream and a timer
// armed to the decoder's earliest deadline.
func (c *Client) gestureLoop() {
	defer c.wg.Done()

	dec := NewGestureDecoder(c.opts.buttonTimers)
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	rearm := func() {
		if armed {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
		if dl, ok := dec.NextDeadline(); ok {
			timer.Reset(time.Until(dl))
			armed = true
		}
	}

	for {
		select {
		case <-c.done:
			return

		case n := <-c.inputs:
			now := time.Now()
			c.emitGestures(dec.Tick(now))
			c.emitGestures(dec.Input(n, now))
			rearm()

		case <-timer.C:
			armed = false
			c.emitGestures(dec.Tick(time.Now()))
			rearm()
		}
	}
}

func (c *Client) emitGestures(gs []Gesture) {
	for _, g := range gs {
		select {
		case c.gestures <- g:
			c.metrics.GesturesEmitted.Inc()
		default:
			c.metrics.GesturesDropped.Inc()
		}
	}
}

// keepAliveLoop sends a benign firmware-version query whenever the session
// has been idle long enough to risk the gateway's idle disconnect. It never
// preempts an outstanding request.
func (c *Client) keepAliveLoop() {
	defer c.wg.Done()
	interval := c.opts.keepAliveInterval

	for {
		idle := time.Since(c.metrics.LastActivity())
		wait := interval - idle

		if wait <= 0 {
			switch {
			case c.awaiting() || c.metrics.QueuedRequests.Value() > 0:
				c.metrics.KeepAlivesDeferred.Inc()
				wait = interval / 4
			case !c.transport.IsConnected():
				wait = interval
			default:
				c.sendKeepAlive()
				wait = interval
			}
		}

		select {
		case <-c.done:
			return
		case <-time.After(wait):
		}
	}
}

func (c *Client) sendKeepAlive() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*c.opts.timeout*time.Duration(c.opts.retries+1))
	defer cancel()
	if _, err := c.QueryConfigItem(ctx, ConfigItemFirmwareVersion); err != nil {
		c.logger.Debug("keep-alive failed", "error", err)
		return
	}
	c.metrics.KeepAlivesSent.Inc()
}

// submit queues a request and blocks until the writer resolves it.
func (c *Client) submit(req *pendingRequest) ([]Confirmation, error) {
	if c.State() == StateDisconnected {
		return nil, ErrNotConnected
	}

	c.metrics.QueuedRequests.Inc()
	select {
	case c.requests <- req:
	case <-req.ctx.Done():
		c.metrics.QueuedRequests.Dec()
		return nil, req.ctx.Err()
	case <-c.done:
		c.metrics.QueuedRequests.Dec()
		return nil, ErrConnectionClosed
	}

	select {
	case res := <-req.done:
		return res.confs, res.err
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

func (c *Client) submitOne(ctx context.Context, tx transmission) (Confirmation, error) {
	req := &pendingRequest{
		ctx:      ctx,
		txs:      []transmission{tx},
		resolved: make(chan txResult, 1),
		done:     make(chan reqResult, 1),
	}
	confs, err := c.submit(req)
	if err != nil {
		return Confirmation{}, err
	}
	return confs[0], nil
}

// Command is one DALI forward frame for SendFrame and SendSequence.
type Command struct {
	// Frame holds the raw DALI bytes, most significant first.
	Frame []byte
	// Bits is the frame length in bits (16 for gear commands, 24 for
	// input device addressing).
	Bits uint8
	// SendTwice marks configuration commands the standard requires to be
	// transmitted twice.
	SendTwice bool
	// ExpectAnswer marks queries.
	ExpectAnswer bool
}

func diffTransmission(cmd Command, sequence bool) (transmission, error) {
	payload, err := Marshal(SendDiff{
		Frame:     cmd.Frame,
		Bits:      cmd.Bits,
		SendTwice: cmd.SendTwice,
		Sequence:  sequence,
	})
	if err != nil {
		return transmission{}, err
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return transmission{}, err
	}
	return transmission{frame: frame, kind: pendingDali, expectAnswer: cmd.ExpectAnswer}, nil
}

// SendFrame transmits one DALI frame and awaits its directed confirmation.
func (c *Client) SendFrame(ctx context.Context, cmd Command) (Confirmation, error) {
	tx, err := diffTransmission(cmd, false)
	if err != nil {
		return Confirmation{}, err
	}
	return c.submitOne(ctx, tx)
}

// SendSequence transmits a command sequence atomically: every frame except
// the last carries the sequence flag, and no other caller can interleave.
// A failure mid-sequence aborts the open sequence on the gateway.
func (c *Client) SendSequence(ctx context.Context, cmds []Command) ([]Confirmation, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	txs := make([]transmission, 0, len(cmds))
	for i, cmd := range cmds {
		tx, err := diffTransmission(cmd, i < len(cmds)-1)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	req := &pendingRequest{
		ctx:      ctx,
		txs:      txs,
		resolved: make(chan txResult, 1),
		done:     make(chan reqResult, 1),
	}
	return c.submit(req)
}

// FireAndForget transmits a DALI frame without blocking the caller. The
// confirmation is still consumed internally to keep correlation intact.
func (c *Client) FireAndForget(cmd Command) error {
	tx, err := diffTransmission(cmd, false)
	if err != nil {
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*c.opts.timeout*time.Duration(c.opts.retries+1))
		defer cancel()
		if _, err := c.submitOne(ctx, tx); err != nil {
			c.logger.Debug("fire-and-forget failed", "error", err)
		}
	}()
	return nil
}

// QueryConfigItem reads a gateway configuration item.
func (c *Client) QueryConfigItem(ctx context.Context, item uint8) (uint16, error) {
	payload, err := Marshal(ConfigQuery{Item: item})
	if err != nil {
		return 0, err
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return 0, err
	}
	conf, err := c.submitOne(ctx, transmission{frame: frame, kind: pendingConfigQuery, item: item})
	if err != nil {
		return 0, err
	}
	return conf.Value, nil
}

// ChangeConfigItem writes a gateway configuration item. A gateway rejection
// surfaces as a ConfigAckError and is not retried.
func (c *Client) ChangeConfigItem(ctx context.Context, item uint8, value uint16) error {
	payload, err := Marshal(ChangeConfig{Item: item, Value: value})
	if err != nil {
		return err
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = c.submitOne(ctx, transmission{frame: frame, kind: pendingConfigChange, item: item})
	return err
}

// WriteFirmwareBlock uploads one firmware block and awaits its ack.
func (c *Client) WriteFirmwareBlock(ctx context.Context, block uint16, data []byte) error {
	payload, err := Marshal(FirmwareWrite{Block: block, Data: data})
	if err != nil {
		return err
	}
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = c.submitOne(ctx, transmission{frame: frame, kind: pendingFirmware, block: block})
	return err
}

// FirmwareVersion reads the gateway firmware version as "major.minor".
func (c *Client) FirmwareVersion(ctx context.Context) (string, error) {
	v, err := c.QueryConfigItem(ctx, ConfigItemFirmwareVersion)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", v>>8, v&0xFF), nil
}
