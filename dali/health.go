package dali

import (
	"sync"
	"time"
)

// GatewayHealth tracks gateway-reported warnings and request round trips.
// Power and hardware faults land here as warnings; they never fail the
// code path that happened to be pending.
type GatewayHealth struct {
	mu sync.RWMutex

	lastSpecial   SpecialEventCode
	lastSpecialAt time.Time
	hasSpecial    bool
	busFault      bool

	lastRoundTrip       time.Duration
	consecutiveTimeouts int
}

func (h *GatewayHealth) recordSpecial(m SpecialEvent, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSpecial = m.Code
	h.lastSpecialAt = at
	h.hasSpecial = true
	switch m.Code {
	case SpecialValidPower:
		h.busFault = false
	case SpecialPowerLoss, SpecialMainsVoltage, SpecialDefectiveSupply:
		h.busFault = true
	}
}

func (h *GatewayHealth) recordRoundTrip(d time.Duration) {
	h.mu.Lock()
	h.lastRoundTrip = d
	h.consecutiveTimeouts = 0
	h.mu.Unlock()
}

func (h *GatewayHealth) recordTimeout() {
	h.mu.Lock()
	h.consecutiveTimeouts++
	h.mu.Unlock()
}

// HealthSnapshot is a point-in-time view of gateway health.
type HealthSnapshot struct {
	// LastSpecialEvent is the most recent gateway status event; valid
	// only when HasSpecialEvent is set.
	LastSpecialEvent   SpecialEventCode
	LastSpecialEventAt time.Time
	HasSpecialEvent    bool

	// BusPowerOK is false after a power loss, mains voltage, or
	// defective supply event, until the gateway reports valid power.
	// True initially: absence of warnings means a healthy bus.
	BusPowerOK bool

	LastRoundTrip       time.Duration
	ConsecutiveTimeouts int
}

// Snapshot returns the current health view.
func (h *GatewayHealth) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		LastSpecialEvent:    h.lastSpecial,
		LastSpecialEventAt:  h.lastSpecialAt,
		HasSpecialEvent:     h.hasSpecial,
		BusPowerOK:          !h.busFault,
		LastRoundTrip:       h.lastRoundTrip,
		ConsecutiveTimeouts: h.consecutiveTimeouts,
	}
}
