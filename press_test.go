package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPressTracker(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }

	tests := []struct {
		name  string
		moves []Point
		upAt  int
		want  PressState
	}{
		{name: "quick release is a click", upAt: 80, want: PressClick},
		{name: "small jitter is still a click", moves: []Point{{X: 3, Y: 4}}, upAt: 80, want: PressClick},
		{name: "movement beyond slop is a drag", moves: []Point{{X: 20, Y: 0}}, upAt: 80, want: PressDragConfirmed},
		{name: "holding past the delay is a long press", upAt: 300, want: PressLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPressTracker(longPressDelay, dragSlop)
			p.Down(Point{}, start)
			for i, m := range tt.moves {
				p.Move(m, at(10*(i+1)))
			}
			assert.Equal(t, tt.want, p.Up(at(tt.upAt)))
			assert.Equal(t, PressIdle, p.State())
		})
	}
}

func TestPressTrackerTick(t *testing.T) {
	start := time.Now()
	p := NewPressTracker(longPressDelay, dragSlop)
	p.Down(Point{X: 1, Y: 1}, start)

	assert.False(t, p.Tick(start.Add(100*time.Millisecond)))
	assert.True(t, p.Tick(start.Add(longPressDelay)))
	assert.False(t, p.Tick(start.Add(time.Second)), "a long press fires once")
	assert.Equal(t, PressLong, p.State())
}

func TestPressTrackerDragStopsLongPress(t *testing.T) {
	start := time.Now()
	p := NewPressTracker(longPressDelay, dragSlop)
	p.Down(Point{}, start)

	assert.True(t, p.Move(Point{X: 30, Y: 30}, start.Add(10*time.Millisecond)))
	assert.False(t, p.Tick(start.Add(time.Second)))
	assert.Equal(t, PressDragConfirmed, p.State())
}

func TestPressTrackerWithin(t *testing.T) {
	start := time.Now()
	p := NewPressTracker(longPressDelay, dragSlop)
	assert.False(t, p.Within(start, clickWindow), "idle tracker has no press")

	p.Down(Point{}, start)
	assert.True(t, p.Within(start.Add(50*time.Millisecond), clickWindow))
	assert.False(t, p.Within(start.Add(clickWindow), clickWindow))
}
