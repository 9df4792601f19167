package dali

import "time"

// RepeatInterval is the long-press repeat cadence fixed by IEC 62386-301.
const RepeatInterval = 200 * time.Millisecond

// ButtonTimers configures the gesture thresholds.
type ButtonTimers struct {
	// Short is the press duration below which a release counts as a short
	// press; held past it the press becomes a long press.
	Short time.Duration
	// Double is the window after a short press during which another press
	// extends the multi-press count. It restarts on every qualifying press.
	Double time.Duration
	// Stuck is the hold duration, measured from the original press edge,
	// past which the button is declared stuck.
	Stuck time.Duration
}

// DefaultButtonTimers matches common wall-switch provisioning.
var DefaultButtonTimers = ButtonTimers{
	Short:  400 * time.Millisecond,
	Double: 500 * time.Millisecond,
	Stuck:  5 * time.Second,
}

// Gesture is one reconstructed button event.
type Gesture struct {
	Key  ButtonKey
	Code EventCode
	Time time.Time
}

type buttonPhase uint8

const (
	phaseIdle buttonPhase = iota
	phasePressed
	phaseLongHeld
	phaseStuck
)

// buttonState carries the per-button tagged state plus its deadline table.
// A zero time means the deadline is not armed.
type buttonState struct {
	phase     buttonPhase
	pressedAt time.Time
	count     int // short presses in the current multi-press run

	shortAt  time.Time // pressed -> long transition
	repeatAt time.Time // next long-press repeat tick
	stuckAt  time.Time // pressed edge + stuck threshold
	multiAt  time.Time // multi-press window expiry
}

func (s *buttonState) nextDeadline() (time.Time, bool) {
	var next time.Time
	for _, t := range []time.Time{s.shortAt, s.repeatAt, s.stuckAt, s.multiAt} {
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next, !next.IsZero()
}

func (s *buttonState) idle() bool {
	_, armed := s.nextDeadline()
	return s.phase == phaseIdle && !armed
}

// GestureDecoder reconstructs the DALI-2 gesture vocabulary from raw
// press/release notifications. One state machine runs per (address,
// instance) key.
//
// The decoder is a pure state machine: Input feeds a notification, Tick
// fires due deadlines, NextDeadline tells the caller when to tick next.
// It is not safe for concurrent use; the client drives it from a single
// goroutine.
type GestureDecoder struct {
	timers  ButtonTimers
	buttons map[ButtonKey]*buttonState
}

// NewGestureDecoder creates a decoder with the given thresholds. Zero
// fields fall back to DefaultButtonTimers.
func NewGestureDecoder(timers ButtonTimers) *GestureDecoder {
	if timers.Short <= 0 {
		timers.Short = DefaultButtonTimers.Short
	}
	if timers.Double <= 0 {
		timers.Double = DefaultButtonTimers.Double
	}
	if timers.Stuck <= 0 {
		timers.Stuck = DefaultButtonTimers.Stuck
	}
	return &GestureDecoder{
		timers:  timers,
		buttons: make(map[ButtonKey]*buttonState),
	}
}

// Input consumes one raw input notification and returns any gestures it
// produces. Codes other than press and release are dropped; the hardware is
// provisioned to send only those two.
func (d *GestureDecoder) Input(n InputNotification, now time.Time) []Gesture {
	switch n.Code {
	case EventButtonPressed:
		return d.press(n.Key(), now)
	case EventButtonReleased:
		return d.release(n.Key(), now)
	default:
		return nil
	}
}

func (d *GestureDecoder) press(key ButtonKey, now time.Time) []Gesture {
	s := d.buttons[key]
	if s == nil {
		s = &buttonState{}
		d.buttons[key] = s
	}
	if s.phase != phaseIdle {
		// Duplicate press edge, no transition.
		return nil
	}

	out := []Gesture{{Key: key, Code: EventButtonPressed, Time: now}}

	if !s.multiAt.IsZero() && !now.After(s.multiAt) {
		s.count++
	} else {
		s.count = 1
	}
	s.multiAt = time.Time{}

	s.phase = phasePressed
	s.pressedAt = now
	s.shortAt = now.Add(d.timers.Short)
	return out
}

func (d *GestureDecoder) release(key ButtonKey, now time.Time) []Gesture {
	s := d.buttons[key]
	if s == nil || s.phase == phaseIdle {
		// Stray release; the raw edge is still reported.
		return []Gesture{{Key: key, Code: EventButtonReleased, Time: now}}
	}

	switch s.phase {
	case phasePressed:
		out := []Gesture{
			{Key: key, Code: EventButtonReleased, Time: now},
			{Key: key, Code: d.multiPressCode(s), Time: now},
		}
		s.phase = phaseIdle
		s.shortAt = time.Time{}
		if s.count >= 3 {
			// Vocabulary caps at triple; the run ends here.
			s.count = 0
		} else {
			s.multiAt = now.Add(d.timers.Double)
		}
		d.prune(key, s)
		return out

	case phaseLongHeld:
		out := []Gesture{
			{Key: key, Code: EventButtonReleased, Time: now},
			{Key: key, Code: EventLongPressStop, Time: now},
		}
		d.reset(key, s)
		return out

	case phaseStuck:
		out := []Gesture{{Key: key, Code: EventButtonFree, Time: now}}
		d.reset(key, s)
		return out
	}
	return nil
}

func (d *GestureDecoder) multiPressCode(s *buttonState) EventCode {
	switch {
	case s.count >= 3:
		return EventTriplePress
	case s.count == 2:
		return EventDoublePress
	default:
		return EventShortPress
	}
}

// Tick fires every deadline due at or before now, in deadline order, and
// returns the gestures produced. Gesture timestamps carry the deadline the
// timer was armed for, not the tick delivery time.
func (d *GestureDecoder) Tick(now time.Time) []Gesture {
	var out []Gesture
	for {
		key, s, due := d.earliestDue(now)
		if s == nil {
			return out
		}

		switch {
		case due.Equal(s.stuckAt):
			out = append(out, Gesture{Key: key, Code: EventButtonStuck, Time: due})
			s.phase = phaseStuck
			s.repeatAt = time.Time{}
			s.stuckAt = time.Time{}

		case due.Equal(s.shortAt):
			out = append(out, Gesture{Key: key, Code: EventLongPressStart, Time: due})
			s.phase = phaseLongHeld
			s.shortAt = time.Time{}
			s.repeatAt = due.Add(RepeatInterval)
			s.stuckAt = s.pressedAt.Add(d.timers.Stuck)
			s.count = 0

		case due.Equal(s.repeatAt):
			out = append(out, Gesture{Key: key, Code: EventLongPressRepeat, Time: due})
			s.repeatAt = due.Add(RepeatInterval)

		case due.Equal(s.multiAt):
			s.multiAt = time.Time{}
			s.count = 0
			d.prune(key, s)
		}
	}
}

// earliestDue finds the earliest armed deadline at or before now across all
// buttons. Stuck sorts ahead of an equal repeat tick so repeats cease on
// the stuck edge.
func (d *GestureDecoder) earliestDue(now time.Time) (ButtonKey, *buttonState, time.Time) {
	var (
		bestKey ButtonKey
		best    *buttonState
		bestAt  time.Time
	)
	for key, s := range d.buttons {
		at, ok := s.nextDeadline()
		if !ok || at.After(now) {
			continue
		}
		if best == nil || at.Before(bestAt) {
			bestKey, best, bestAt = key, s, at
		}
	}
	return bestKey, best, bestAt
}

// NextDeadline returns the earliest armed deadline across all buttons.
func (d *GestureDecoder) NextDeadline() (time.Time, bool) {
	var next time.Time
	for _, s := range d.buttons {
		at, ok := s.nextDeadline()
		if !ok {
			continue
		}
		if next.IsZero() || at.Before(next) {
			next = at
		}
	}
	return next, !next.IsZero()
}

func (d *GestureDecoder) reset(key ButtonKey, s *buttonState) {
	*s = buttonState{}
	d.prune(key, s)
}

func (d *GestureDecoder) prune(key ButtonKey, s *buttonState) {
	if s.idle() {
		delete(d.buttons, key)
	}
}
