package main

import (
	"math"
	"time"
)

type PressState int

const (
	PressIdle PressState = iota
	PressHeld
	PressClick
	PressDragConfirmed
	PressLong
)

func (s PressState) String() string {
	switch s {
	case PressIdle:
		return "idle"
	case PressHeld:
		return "held"
	case PressClick:
		return "click"
	case PressDragConfirmed:
		return "drag"
	case PressLong:
		return "long"
	}
	return "unknown"
}

// PressTracker tells a click, a drag and a long press apart using event
// timestamps and pointer movement instead of timers.
//
// Idle -> Held on Down. From Held, movement beyond slop confirms a drag,
// holding for at least hold yields a long press, and Up yields a click.
type PressTracker struct {
	hold  time.Duration
	slop  float64
	state PressState
	start Point
	at    time.Time
}

func NewPressTracker(hold time.Duration, slop float64) *PressTracker {
	return &PressTracker{hold: hold, slop: slop}
}

func (p *PressTracker) State() PressState { return p.state }
func (p *PressTracker) Start() Point      { return p.start }
func (p *PressTracker) PressedAt() time.Time {
	return p.at
}

func (p *PressTracker) Down(pt Point, at time.Time) {
	p.state = PressHeld
	p.start = pt
	p.at = at
}

// Move reports whether this movement confirmed a drag. Movement is the
// mean of the x and y deltas.
func (p *PressTracker) Move(pt Point, at time.Time) bool {
	if p.state != PressHeld {
		return false
	}
	if (math.Abs(pt.X-p.start.X)+math.Abs(pt.Y-p.start.Y))/2 > p.slop {
		p.state = PressDragConfirmed
		return true
	}
	p.Tick(at)
	return false
}

// Tick reports whether the press just became a long press.
func (p *PressTracker) Tick(at time.Time) bool {
	if p.state != PressHeld || p.hold <= 0 {
		return false
	}
	if at.Sub(p.at) >= p.hold {
		p.state = PressLong
		return true
	}
	return false
}

// Up ends the gesture and returns the state it resolved to.
func (p *PressTracker) Up(at time.Time) PressState {
	p.Tick(at)
	final := p.state
	if final == PressHeld {
		final = PressClick
	}
	p.state = PressIdle
	return final
}

// Within reports whether at falls inside d of the press.
func (p *PressTracker) Within(at time.Time, d time.Duration) bool {
	return p.state != PressIdle && at.Sub(p.at) < d
}

func (p *PressTracker) Reset() {
	p.state = PressIdle
}
