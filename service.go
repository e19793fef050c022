package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

var ErrUnknownClickAction = errors.New("unknown click action")

// ClickAction is what a click on a service does.
type ClickAction int

const (
	ClickShowServiceDetails ClickAction = iota
	ClickToggleControlPanel
	ClickAmbiguousAddRelationCheck
	clickActionCount
)

var clickActionNames = [...]string{
	ClickShowServiceDetails:        "show_details",
	ClickToggleControlPanel:        "toggle_control_panel",
	ClickAmbiguousAddRelationCheck: "ambiguous_add_relation_check",
}

func (a ClickAction) String() string {
	if a < 0 || a >= clickActionCount {
		return fmt.Sprintf("ClickAction(%d)", int(a))
	}
	return clickActionNames[a]
}

// ParseClickAction maps a configured name to its action. Only the actions
// a user may configure are accepted.
func ParseClickAction(name string) (ClickAction, error) {
	switch name {
	case "", "show_details":
		return ClickShowServiceDetails, nil
	case "toggle_control_panel":
		return ClickToggleControlPanel, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownClickAction)
}

// MoveServiceData is the undo payload for a finished drag.
type MoveServiceData struct {
	ID   string
	From Point
	To   Point
}

// ServiceModule renders application nodes and handles their gestures.
type ServiceModule struct {
	topo   *Topology
	logger *slog.Logger

	zOrder []string

	clickActions       map[ClickAction]func(*BoundingBox)
	defaultClickAction ClickAction
	currentClickAction ClickAction

	lastBoxClicked     *BoundingBox
	clickBox           *BoundingBox
	clickDeadline      time.Time
	clickTimerFired    bool
	ignoreServiceClick bool
	dragFrom           Point

	relPress    *PressTracker
	relPressBox *BoundingBox

	centered bool

	// OnMoved is called when a drag finishes with the box in a new place.
	OnMoved func(MoveServiceData)
}

func NewServiceModule(t *Topology) *ServiceModule {
	s := &ServiceModule{
		topo:     t,
		logger:   t.logger.With("module", "service"),
		relPress: NewPressTracker(longPressDelay, dragSlop),
	}
	s.clickActions = map[ClickAction]func(*BoundingBox){
		ClickShowServiceDetails:        s.showServiceDetails,
		ClickToggleControlPanel:        s.toggleControlPanel,
		ClickAmbiguousAddRelationCheck: s.ambiguousAddRelationCheck,
	}
	action, err := ParseClickAction(t.config.ClickAction)
	if err != nil {
		panic(err)
	}
	s.defaultClickAction = action
	s.currentClickAction = action

	t.bus.Subscribe(EventPanToCenter, func(Event) { s.PanToCenter() })
	t.bus.Subscribe(EventFade, func(ev Event) { s.Fade(ev.ServiceNames) })
	t.bus.Subscribe(EventShow, func(ev Event) { s.Show(ev.ServiceNames) })
	t.bus.Subscribe(EventHide, func(ev Event) { s.Hide(ev.ServiceNames) })
	t.bus.Subscribe(EventUnhighlight, func(ev Event) { s.Unhighlight() })
	t.bus.Subscribe(EventHighlight, func(ev Event) {
		if len(ev.ServiceNames) > 0 {
			s.Highlight(ev.ServiceNames[0], ev.Visible)
		}
	})
	return s
}

func (s *ServiceModule) ClickAction() ClickAction {
	return s.currentClickAction
}

// SetClickAction installs a registered action. Unregistered actions are a
// programming error.
func (s *ServiceModule) SetClickAction(a ClickAction) {
	if _, ok := s.clickActions[a]; !ok {
		panic(fmt.Sprintf("set click action: %v", a))
	}
	s.currentClickAction = a
}

func (s *ServiceModule) ResetClickAction() {
	s.currentClickAction = s.defaultClickAction
}

func (s *ServiceModule) showServiceDetails(box *BoundingBox) {
	if s.topo.router == nil {
		return
	}
	s.topo.router.ChangeState(StateChange{Inspector: &InspectorState{ID: box.ID}})
}

func (s *ServiceModule) toggleControlPanel(box *BoundingBox) {
	if s.topo.router == nil {
		return
	}
	s.topo.router.ChangeState(StateChange{Inspector: &InspectorState{ID: box.ID}, ControlPanel: true})
}

func (s *ServiceModule) ambiguousAddRelationCheck(box *BoundingBox) {
	s.topo.Relations.AmbiguousAddRelationCheck(box)
}

// ZOrder lists box ids bottom to top.
func (s *ServiceModule) ZOrder() []string {
	return s.zOrder
}

func (s *ServiceModule) RaiseToTop(box *BoundingBox) {
	for i, id := range s.zOrder {
		if id == box.ID {
			s.zOrder = append(s.zOrder[:i], s.zOrder[i+1:]...)
			break
		}
	}
	s.zOrder = append(s.zOrder, box.ID)
}

func (s *ServiceModule) syncZOrder() {
	boxes := s.topo.boxes
	kept := s.zOrder[:0]
	seen := make(map[string]bool, len(boxes))
	for _, id := range s.zOrder {
		if boxes[id] != nil && !seen[id] {
			kept = append(kept, id)
			seen[id] = true
		}
	}
	s.zOrder = kept
	for _, b := range s.topo.SortedBoxes() {
		if !seen[b.ID] {
			s.zOrder = append(s.zOrder, b.ID)
		}
	}
}

// Update places new boxes, applies persisted positions and classifies
// every node.
func (s *ServiceModule) Update() {
	s.syncZOrder()
	s.placeNewBoxes()

	moved := 0
	for _, b := range s.topo.SortedBoxes() {
		if s.applyAnnotations(b) {
			moved++
		}
		b.Class = s.Classify(b)
	}
	if moved > 1 || (!s.centered && len(s.topo.boxes) > 0) {
		s.centered = true
		s.PanToCenter()
	}
}

// applyAnnotations moves a box to its persisted position unless the user is
// dragging it. A box whose own write has come back leaves DragEnding.
func (s *ServiceModule) applyAnnotations(b *BoundingBox) bool {
	x, okx := b.Annotations.Get(annotationX)
	y, oky := b.Annotations.Get(annotationY)
	if !okx || !oky {
		return false
	}
	switch b.InDrag {
	case DragStart, DragActive:
		return false
	case DragEnding:
		if x == b.X && y == b.Y {
			b.InDrag = DragNone
		}
		return false
	}
	if b.Placed() && x == b.X && y == b.Y {
		return false
	}
	b.MoveTo(x, y)
	return true
}

// Classify derives the node's status class from its units.
func (s *ServiceModule) Classify(b *BoundingBox) ServiceClass {
	if b.Subordinate {
		return ClassSubordinate
	}
	var errored, pending, uncommitted bool
	if app := b.Model(); app != nil {
		for _, u := range app.Units {
			switch u.AgentState {
			case "error":
				errored = true
			case "installing", "pending":
				pending = true
			case "":
				uncommitted = true
			}
		}
	}
	switch {
	case errored:
		return ClassError
	case pending:
		return ClassPending
	case uncommitted || b.Pending || b.Deleted:
		return ClassUncommitted
	}
	return ClassRunning
}

// AnnotateBoxPosition records the box position. Pending boxes keep it in
// memory; committed ones write it through the environment.
func (s *ServiceModule) AnnotateBoxPosition(b *BoundingBox) {
	t := s.topo
	pos := Annotations{annotationX: b.X, annotationY: b.Y}
	app := t.ServiceForBox(b)
	if b.Pending {
		if app != nil {
			if app.Annotations == nil {
				app.Annotations = make(Annotations, 2)
			}
			app.Annotations[annotationX] = b.X
			app.Annotations[annotationY] = b.Y
		}
		b.Annotations = pos.Clone()
		return
	}
	if t.env == nil {
		return
	}
	if err := t.env.UpdateAnnotations(b.ID, "application", pos); err != nil {
		s.logger.Error("update annotations", "id", b.ID, "err", err)
		t.store.AddNotification(Notification{
			Title:   "Error saving position",
			Message: fmt.Sprintf("Position of %s could not be saved: %s", b.Name, err),
			Level:   LevelError,
		})
		return
	}
	b.Annotations = pos.Clone()
	b.InDrag = DragEnding
}

// DragStart marks the box and raises it. A press on a different box than
// the last one skips the click window.
func (s *ServiceModule) DragStart(box *BoundingBox, at time.Time) {
	box.InDrag = DragStart
	s.dragFrom = box.Position()
	s.RaiseToTop(box)
	s.clickTimerFired = false
	s.clickBox = box
	if s.lastBoxClicked != nil && s.lastBoxClicked != box {
		s.clickTimerFired = true
		s.lastBoxClicked = box
		return
	}
	s.clickDeadline = at.Add(clickWindow)
}

// clickTimer reports whether the click window has elapsed. The box only
// counts as the last one clicked once it has.
func (s *ServiceModule) clickTimer(at time.Time) bool {
	if !s.clickTimerFired && !at.Before(s.clickDeadline) {
		s.clickTimerFired = true
		s.lastBoxClicked = s.clickBox
	}
	return s.clickTimerFired
}

// Drag moves the box by delta, or forwards the cursor to the relation
// engine while a relation is being built.
func (s *ServiceModule) Drag(box *BoundingBox, delta, cursor Point, at time.Time) {
	t := s.topo
	if t.BuildingRelation() {
		t.bus.Publish(Event{Kind: EventAddRelationDrag, Box: box, Point: cursor})
		return
	}
	s.relPress.Reset()
	box.MoveTo(box.X+delta.X, box.Y+delta.Y)
	if box.InDrag == DragStart {
		box.InDrag = DragActive
		t.bus.Fire(EventCancelRelationBuild)
	}
	t.bus.Publish(Event{Kind: EventServiceMoved, Box: box})
}

// DragEnd finishes a drag. Ending a relation drag drops it; ending a real
// move persists the position.
func (s *ServiceModule) DragEnd(box *BoundingBox, at time.Time) {
	t := s.topo
	if t.BuildingRelation() && s.clickTimer(at) {
		s.ignoreServiceClick = true
		t.bus.Fire(EventAddRelationDragEnd)
		s.lastBoxClicked = nil
		box.InDrag = DragNone
		return
	}
	if box.InDrag != DragActive {
		box.InDrag = DragNone
		return
	}
	s.ignoreServiceClick = true
	from := s.dragFrom
	s.AnnotateBoxPosition(box)
	if box.InDrag == DragActive {
		box.InDrag = DragNone
	}
	if s.OnMoved != nil && from != box.Position() {
		s.OnMoved(MoveServiceData{ID: box.ID, From: from, To: box.Position()})
	}
}

// ServiceClick runs the current click action unless the click was the tail
// of a drag.
func (s *ServiceModule) ServiceClick(box *BoundingBox, screen Point) {
	if box == nil || !box.ContainsPoint(screen, s.topo.Transform()) {
		return
	}
	if s.ignoreServiceClick {
		s.ignoreServiceClick = false
		return
	}
	s.clickActions[s.currentClickAction](box)
	s.RaiseToTop(box)
}

// allowBuildRelation requires the box's charm metadata to be loaded.
func (s *ServiceModule) allowBuildRelation(box *BoundingBox) bool {
	app := s.topo.ServiceForBox(box)
	if app == nil {
		return false
	}
	c := s.topo.store.Charm(app.Charm)
	return c != nil && c.Loaded
}

// ServiceAddRelMouseDown arms the long press on a box's relation handle.
func (s *ServiceModule) ServiceAddRelMouseDown(box *BoundingBox, cursor Point, at time.Time) {
	s.relPress.Down(cursor, at)
	s.relPressBox = box
}

// ServiceAddRelMouseMove feeds pointer movement to the long press. Moving
// too far cancels it.
func (s *ServiceModule) ServiceAddRelMouseMove(cursor Point, at time.Time) {
	if s.relPress.State() != PressHeld {
		return
	}
	if s.relPress.Move(cursor, at) {
		s.relPressBox = nil
		return
	}
	if s.relPress.State() == PressLong {
		s.startRelationFromPress(cursor)
	}
}

// ServiceAddRelTick advances the long press on a clock tick.
func (s *ServiceModule) ServiceAddRelTick(at time.Time) {
	if s.relPress.Tick(at) {
		s.startRelationFromPress(s.relPress.Start())
	}
}

func (s *ServiceModule) ServiceAddRelMouseUp(at time.Time) {
	if s.relPress.State() == PressHeld && s.relPress.Up(at) == PressLong {
		s.startRelationFromPress(s.relPress.Start())
	}
	s.relPress.Reset()
	s.relPressBox = nil
}

func (s *ServiceModule) startRelationFromPress(cursor Point) {
	box := s.relPressBox
	s.relPressBox = nil
	if box == nil || !s.allowBuildRelation(box) {
		return
	}
	if s.topo.Relations.StartService() == nil {
		s.topo.bus.Publish(Event{Kind: EventAddRelationDragStart, Box: box, Point: cursor})
	}
}

// Hover tracks the box under the cursor while a relation is being built
// and snaps to selectable targets.
func (s *ServiceModule) Hover(box *BoundingBox) {
	r := s.topo.Relations
	if r.StartService() == nil || r.AmbiguousMenu() != nil {
		return
	}
	current := r.DropService()
	if box == current {
		return
	}
	if current != nil {
		s.topo.bus.Fire(EventSnapOutOfService)
	}
	if box != nil && box.Selectable {
		s.topo.bus.Publish(Event{Kind: EventSnapToService, Box: box})
	}
}

func (s *ServiceModule) CanvasClick() {
	s.topo.bus.Fire(EventClearState)
}

func (s *ServiceModule) BackgroundClicked() {
	s.topo.bus.Fire(EventClearState)
}

// ClearState closes the inspector and forgets gesture state.
func (s *ServiceModule) ClearState() {
	s.ignoreServiceClick = false
	s.lastBoxClicked = nil
	s.clickBox = nil
	s.relPress.Reset()
	s.relPressBox = nil
	s.ResetClickAction()
	if s.topo.router != nil {
		s.topo.router.ChangeState(StateChange{Clear: true})
	}
}

func (s *ServiceModule) setVisibility(ids []string, apply func(*Application)) {
	t := s.topo
	targets := ids
	if len(targets) == 0 {
		targets = nil
		for _, a := range t.store.Applications() {
			targets = append(targets, a.ID)
		}
	}
	for _, id := range targets {
		app := t.store.Application(id)
		if app == nil {
			continue
		}
		apply(app)
		if b := t.boxes[id]; b != nil {
			b.Fade, b.Hide, b.Highlighted = app.Fade, app.Hide, app.Highlighted
		}
	}
	t.Relations.UpdateRelationVisibility()
}

// Fade dims the named services. Nothing happens without names.
func (s *ServiceModule) Fade(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.setVisibility(ids, func(a *Application) { a.Fade = true })
}

// Show clears fade and hide on the named services, or on all of them.
func (s *ServiceModule) Show(ids []string) {
	s.setVisibility(ids, func(a *Application) {
		a.Fade = false
		a.Hide = false
	})
}

func (s *ServiceModule) Hide(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.setVisibility(ids, func(a *Application) { a.Hide = true })
}

// Highlight marks one service and fades the rest, sparing its related
// services when highlightRelated is set.
func (s *ServiceModule) Highlight(id string, highlightRelated bool) {
	t := s.topo
	keep := map[string]bool{id: true}
	if highlightRelated {
		for _, r := range t.store.Relations() {
			a, b := r.Endpoints[0].Application, r.Endpoints[1].Application
			if a == id {
				keep[b] = true
			}
			if b == id {
				keep[a] = true
			}
		}
	}
	var fade []string
	for _, a := range t.store.Applications() {
		if !keep[a.ID] {
			fade = append(fade, a.ID)
		}
	}
	s.setVisibility([]string{id}, func(a *Application) {
		a.Highlighted = true
		a.Fade = false
	})
	s.Fade(fade)
}

func (s *ServiceModule) Unhighlight() {
	s.setVisibility(nil, func(a *Application) {
		a.Highlighted = false
		a.Fade = false
	})
}

// PanToCenter centers the view on the centroid of every placed box.
func (s *ServiceModule) PanToCenter() {
	vertices := BoxVertices(s.topo.boxes)
	if len(vertices) == 0 {
		return
	}
	s.topo.bus.Publish(Event{Kind: EventPanToPoint, Point: Centroid(vertices), Center: true})
}

// TruncateServiceName shortens long display names, keeping the
// parentheses of pending names outside the limit.
func TruncateServiceName(b *BoundingBox) string {
	name := b.DisplayName
	if b.Pending && len(name) >= 2 && name[0] == '(' && name[len(name)-1] == ')' {
		name = name[1 : len(name)-1]
	}
	if utf8.RuneCountInString(name) > maxServiceName {
		name = string([]rune(name)[:maxServiceName-1]) + "…"
	}
	if b.Pending {
		name = "(" + name + ")"
	}
	return name
}
