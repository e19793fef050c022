package main

type Action struct {
	Type    ActionType
	Data    interface{}
	Inverse interface{}
}

// History is the undo and redo stack of the session.
type History struct {
	undoStack []Action
	redoStack []Action
}

func NewHistory() *History {
	return &History{}
}

func (h *History) recordAction(actionType ActionType, data, inverse interface{}) {
	action := Action{
		Type:    actionType,
		Data:    data,
		Inverse: inverse,
	}
	h.undoStack = append(h.undoStack, action)
	h.redoStack = h.redoStack[:0]
}

// RecordMove is installed as ServiceModule.OnMoved.
func (h *History) RecordMove(data MoveServiceData) {
	h.recordAction(ActionMoveService, data, MoveServiceData{ID: data.ID, From: data.To, To: data.From})
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// Undo reverts the last action. It reports false when there was nothing to
// undo or the service is gone.
func (h *History) Undo(t *Topology) bool {
	if len(h.undoStack) == 0 {
		return false
	}

	lastIndex := len(h.undoStack) - 1
	action := h.undoStack[lastIndex]
	h.undoStack = h.undoStack[:lastIndex]

	ok := true
	switch action.Type {
	case ActionMoveService:
		data := action.Inverse.(MoveServiceData)
		ok = applyMove(t, data)
	}

	if ok {
		h.redoStack = append(h.redoStack, action)
	}
	return ok
}

func (h *History) Redo(t *Topology) bool {
	if len(h.redoStack) == 0 {
		return false
	}

	lastIndex := len(h.redoStack) - 1
	action := h.redoStack[lastIndex]
	h.redoStack = h.redoStack[:lastIndex]

	ok := true
	switch action.Type {
	case ActionMoveService:
		data := action.Data.(MoveServiceData)
		ok = applyMove(t, data)
	}

	if ok {
		h.undoStack = append(h.undoStack, action)
	}
	return ok
}

// applyMove puts the box at data.To and saves the position the same way a
// finished drag does.
func applyMove(t *Topology, data MoveServiceData) bool {
	box := t.Box(data.ID)
	if box == nil {
		return false
	}
	box.MoveTo(data.To.X, data.To.Y)
	t.Services.AnnotateBoxPosition(box)
	t.bus.Publish(Event{Kind: EventServiceMoved, Box: box})
	t.Update()
	return true
}
