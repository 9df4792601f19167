package dali

import (
	"testing"
	"time"
)

var testTimers = ButtonTimers{
	Short:  400 * time.Millisecond,
	Double: 500 * time.Millisecond,
	Stuck:  5 * time.Second,
}

var testKey = ButtonKey{Kind: AddressShort, Address: 5, Instance: 2}

func testNotification(code EventCode) InputNotification {
	return InputNotification{
		Kind:     testKey.Kind,
		Address:  testKey.Address,
		Instance: testKey.Instance,
		Code:     code,
	}
}

// at returns the synthetic clock offset by d.
func at(base time.Time, d time.Duration) time.Time {
	return base.Add(d)
}

func assertGestures(t *testing.T, got []Gesture, base time.Time, want []struct {
	code EventCode
	at   time.Duration
}) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d gestures %v, want %d", len(got), codes(got), len(want))
	}
	for i, w := range want {
		if got[i].Code != w.code {
			t.Errorf("gesture %d = %v, want %v", i, got[i].Code, w.code)
		}
		if !got[i].Time.Equal(base.Add(w.at)) {
			t.Errorf("gesture %d (%v) at %v, want %v",
				i, got[i].Code, got[i].Time.Sub(base), w.at)
		}
		if got[i].Key != testKey {
			t.Errorf("gesture %d key = %v, want %v", i, got[i].Key, testKey)
		}
	}
}

func codes(gs []Gesture) []EventCode {
	out := make([]EventCode, len(gs))
	for i, g := range gs {
		out[i] = g.Code
	}
	return out
}

func TestShortPress(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	got := dec.Input(testNotification(EventButtonPressed), base)
	got = append(got, dec.Input(testNotification(EventButtonReleased), at(base, 200*time.Millisecond))...)

	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventButtonPressed, 0},
		{EventButtonReleased, 200 * time.Millisecond},
		{EventShortPress, 200 * time.Millisecond},
	})
}

func TestDoublePress(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	dec.Input(testNotification(EventButtonPressed), base)
	dec.Input(testNotification(EventButtonReleased), at(base, 100*time.Millisecond))

	// Second press 300ms after the first release, inside the 500ms window.
	dec.Input(testNotification(EventButtonPressed), at(base, 400*time.Millisecond))
	got := dec.Input(testNotification(EventButtonReleased), at(base, 500*time.Millisecond))

	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventButtonReleased, 500 * time.Millisecond},
		{EventDoublePress, 500 * time.Millisecond},
	})
}

func TestTriplePress(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	press := testNotification(EventButtonPressed)
	release := testNotification(EventButtonReleased)

	dec.Input(press, base)
	dec.Input(release, at(base, 100*time.Millisecond))
	dec.Input(press, at(base, 300*time.Millisecond))
	dec.Input(release, at(base, 400*time.Millisecond))
	dec.Input(press, at(base, 600*time.Millisecond))
	got := dec.Input(release, at(base, 700*time.Millisecond))

	if len(got) != 2 || got[1].Code != EventTriplePress {
		t.Fatalf("third cycle = %v, want released + triple_press", codes(got))
	}

	// The run capped at triple; a fourth press starts over.
	dec.Input(press, at(base, 900*time.Millisecond))
	got = dec.Input(release, at(base, time.Second))
	if len(got) != 2 || got[1].Code != EventShortPress {
		t.Fatalf("fourth cycle = %v, want released + short_press", codes(got))
	}
}

func TestDoubleWindowExpiry(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	dec.Input(testNotification(EventButtonPressed), base)
	dec.Input(testNotification(EventButtonReleased), at(base, 100*time.Millisecond))

	// Window closes at release+500ms; this press is too late.
	dec.Tick(at(base, 650*time.Millisecond))
	dec.Input(testNotification(EventButtonPressed), at(base, 700*time.Millisecond))
	got := dec.Input(testNotification(EventButtonReleased), at(base, 800*time.Millisecond))

	if len(got) != 2 || got[1].Code != EventShortPress {
		t.Fatalf("late second cycle = %v, want released + short_press", codes(got))
	}
}

func TestLongPress(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	dec.Input(testNotification(EventButtonPressed), base)

	dl, ok := dec.NextDeadline()
	if !ok || !dl.Equal(at(base, 400*time.Millisecond)) {
		t.Fatalf("NextDeadline() = %v/%v, want +400ms", dl.Sub(base), ok)
	}

	// Tick straight past several repeat intervals; deadlines fire in
	// order with their own timestamps.
	got := dec.Tick(at(base, 1050*time.Millisecond))
	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventLongPressStart, 400 * time.Millisecond},
		{EventLongPressRepeat, 600 * time.Millisecond},
		{EventLongPressRepeat, 800 * time.Millisecond},
		{EventLongPressRepeat, 1000 * time.Millisecond},
	})

	got = dec.Input(testNotification(EventButtonReleased), at(base, 1200*time.Millisecond))
	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventButtonReleased, 1200 * time.Millisecond},
		{EventLongPressStop, 1200 * time.Millisecond},
	})
}

func TestStuckButton(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	dec.Input(testNotification(EventButtonPressed), base)

	got := dec.Tick(at(base, 5*time.Second))
	if len(got) == 0 {
		t.Fatal("no gestures after 5s hold")
	}

	last := got[len(got)-1]
	if last.Code != EventButtonStuck || !last.Time.Equal(at(base, 5*time.Second)) {
		t.Fatalf("last gesture = %v at %v, want button_stuck at +5s", last.Code, last.Time.Sub(base))
	}
	// long_press_start at 400ms, then repeats every 200ms strictly before
	// the stuck edge; the tick at 5000ms yields stuck, not a repeat.
	if got[0].Code != EventLongPressStart {
		t.Fatalf("first gesture = %v, want long_press_start", got[0].Code)
	}
	for _, g := range got[1 : len(got)-1] {
		if g.Code != EventLongPressRepeat {
			t.Fatalf("unexpected gesture %v before stuck", g.Code)
		}
		if !g.Time.Before(at(base, 5*time.Second)) {
			t.Fatalf("repeat at %v, want before +5s", g.Time.Sub(base))
		}
	}

	// Repeats cease while stuck.
	if more := dec.Tick(at(base, 5500*time.Millisecond)); len(more) != 0 {
		t.Fatalf("gestures while stuck = %v, want none", codes(more))
	}

	got = dec.Input(testNotification(EventButtonReleased), at(base, 6*time.Second))
	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventButtonFree, 6 * time.Second},
	})
}

func TestStrayRelease(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	got := dec.Input(testNotification(EventButtonReleased), base)
	assertGestures(t, got, base, []struct {
		code EventCode
		at   time.Duration
	}{
		{EventButtonReleased, 0},
	})
}

func TestUnprovisionedCodesDropped(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	for _, code := range []EventCode{EventShortPress, EventLongPressStart, EventCode(0x1F)} {
		if got := dec.Input(testNotification(code), base); got != nil {
			t.Errorf("Input(%v) = %v, want nil", code, codes(got))
		}
	}
	if _, ok := dec.NextDeadline(); ok {
		t.Error("NextDeadline() armed after dropped codes")
	}
}

func TestIndependentButtons(t *testing.T) {
	base := time.Now()
	dec := NewGestureDecoder(testTimers)

	other := InputNotification{Kind: AddressShort, Address: 6, Instance: 0, Code: EventButtonPressed}

	dec.Input(testNotification(EventButtonPressed), base)
	dec.Input(other, at(base, 50*time.Millisecond))

	// First button goes long at 400ms, second at 450ms.
	got := dec.Tick(at(base, 460*time.Millisecond))
	if len(got) != 2 {
		t.Fatalf("got %v, want two long_press_start", codes(got))
	}
	if got[0].Code != EventLongPressStart || got[1].Code != EventLongPressStart {
		t.Fatalf("got %v, want two long_press_start", codes(got))
	}
	if !got[0].Time.Before(got[1].Time) {
		t.Error("gestures not in deadline order")
	}
}
