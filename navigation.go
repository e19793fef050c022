package main

// Keyboard pans move by a few cells at a time; shifted arrows move twice as
// far.
const (
	panStepCols = 4
	panStepRows = 2
)

func (m *model) handlePan(key string) {
	speed := float64(m.getMoveSpeed(key))
	var delta Point
	switch key {
	case "left", "shift+left":
		delta.X = panStepCols * cellWidth * speed
	case "right", "shift+right":
		delta.X = -panStepCols * cellWidth * speed
	case "up", "shift+up":
		delta.Y = panStepRows * cellHeight * speed
	case "down", "shift+down":
		delta.Y = -panStepRows * cellHeight * speed
	}
	m.pan(delta)
}

// pan shifts the view by a screen-space delta through the rescale event,
// the same path a background drag takes.
func (m *model) pan(delta Point) {
	t := m.topo
	t.Bus().Publish(Event{Kind: EventRescale, Scale: t.Scale(), Translate: t.Translate().Add(delta)})
}

func (m *model) getMoveSpeed(key string) int {
	switch key {
	case "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}
