package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRedoMove(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.AddApplication(testApp("a", "cs:a", 0, 0))
	rig.topo.Update()
	history := NewHistory()
	rig.topo.Services.OnMoved = history.RecordMove
	box := rig.topo.Box("a")
	now := time.Now()

	rig.topo.Services.DragStart(box, now)
	rig.topo.Services.Drag(box, Point{X: 60, Y: -30}, Point{}, now)
	rig.topo.Services.DragEnd(box, now)
	rig.topo.Update()
	require.True(t, history.CanUndo())
	assert.False(t, history.CanRedo())

	require.True(t, history.Undo(rig.topo))
	assert.Equal(t, Point{}, rig.topo.Box("a").Position())
	assert.Equal(t, Annotations{annotationX: 0, annotationY: 0}, rig.env.annotations[len(rig.env.annotations)-1].Annotations)
	assert.True(t, history.CanRedo())

	require.True(t, history.Redo(rig.topo))
	assert.Equal(t, Point{X: 60, Y: -30}, rig.topo.Box("a").Position())
	assert.False(t, history.CanRedo())
}

func TestUndoEmpty(t *testing.T) {
	history := NewHistory()
	topo := NewTopology(TopologyOptions{})

	assert.False(t, history.Undo(topo))
	assert.False(t, history.Redo(topo))
}

func TestUndoMissingService(t *testing.T) {
	history := NewHistory()
	history.RecordMove(MoveServiceData{ID: "gone", From: Point{}, To: Point{X: 1}})

	assert.False(t, history.Undo(NewTopology(TopologyOptions{})))
	assert.False(t, history.CanRedo(), "a move that could not be applied is dropped")
	assert.False(t, history.CanUndo())

	history.redoStack = append(history.redoStack, Action{Type: ActionMoveService, Data: MoveServiceData{ID: "gone"}})
	assert.False(t, history.Redo(NewTopology(TopologyOptions{})))
	assert.False(t, history.CanUndo())
}

func TestNewActionClearsRedo(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.AddApplication(testApp("a", "cs:a", 0, 0))
	rig.topo.Update()
	history := NewHistory()

	history.RecordMove(MoveServiceData{ID: "a", From: Point{}, To: Point{X: 10}})
	history.Undo(rig.topo)
	history.RecordMove(MoveServiceData{ID: "a", From: Point{}, To: Point{X: 20}})

	assert.False(t, history.CanRedo())
}
