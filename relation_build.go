package main

// Dragline is the rubber band drawn while a relation is being built.
type Dragline struct {
	From        Point
	To          Point
	Indicator   Point
	OverService bool
	Class       string
}

const (
	draglineDragging = "relation pending-relation dragline dragging"
	draglineSnapped  = "relation pending-relation dragline"
)

func (m *RelationModule) Dragline() *Dragline                          { return m.dragline }
func (m *RelationModule) CursorBox() *BoundingBox                      { return m.cursorBox }
func (m *RelationModule) StartService() *BoundingBox                   { return m.startService }
func (m *RelationModule) DropService() *BoundingBox                    { return m.dropService }
func (m *RelationModule) ClickAddRelation() bool                       { return m.clickAddRelation }
func (m *RelationModule) PossibleEndpoints() map[string][]EndpointPair { return m.possibleEndpoints }

// StartRelation enters relation building from box: every service is shown,
// services that cannot be a target are faded, and a click on a service now
// completes the relation.
func (m *RelationModule) StartRelation(box *BoundingBox) {
	t := m.topo
	t.SetBuildingRelation(true)
	m.clickAddRelation = true
	t.Services.Show(nil)

	endpoints := GetEndpoints(t.store, t.ServiceForBox(box))
	var invalid []string
	for _, b := range t.SortedBoxes() {
		b.Selectable = true
		if _, ok := endpoints[b.ID]; !ok && b.ID != box.ID {
			b.Selectable = false
			invalid = append(invalid, b.ID)
		}
	}
	t.Services.Fade(invalid)

	m.possibleEndpoints = endpoints
	t.Services.SetClickAction(ClickAmbiguousAddRelationCheck)
	m.logger.Debug("relation build started", "service", box.ID, "targets", len(endpoints))
}

// AddRelationStart begins a build from box. A second start while one is in
// progress is ignored.
func (m *RelationModule) AddRelationStart(box *BoundingBox) {
	if box == nil {
		return
	}
	if m.startService != nil {
		m.logger.Debug("relation build already active", "service", m.startService.ID)
		return
	}
	m.StartRelation(box)
	m.startService = box
}

func newCursorBox(p Point) *BoundingBox {
	b := &BoundingBox{ID: "cursor", margins: serviceMargins}
	b.SetPos(p.X, p.Y, 0, 0)
	return b
}

// AddRelationDragStart anchors a dragline between the cursor and the
// nearest connector of box.
func (m *RelationModule) AddRelationDragStart(box *BoundingBox, cursor Point) {
	if m.dragline != nil || m.startService != nil || box == nil {
		return
	}
	m.cursorBox = newCursorBox(cursor)
	pair := m.cursorBox.ConnectorPair(box)
	m.dragline = &Dragline{
		From:      pair[0],
		To:        pair[1],
		Indicator: pair[0],
		Class:     draglineDragging,
	}
	m.AddRelationStart(box)
}

// AddRelationDrag makes the dragline follow the cursor unless it is
// snapped to a target.
func (m *RelationModule) AddRelationDrag(box *BoundingBox, cursor Point) {
	if box == nil || m.dragline == nil {
		m.clearRelationSettings()
		return
	}
	if m.draglineOverService {
		return
	}
	if m.cursorBox == nil {
		m.cursorBox = newCursorBox(cursor)
	}
	m.cursorBox.SetPos(cursor.X, cursor.Y, 0, 0)
	s := m.cursorBox.ConnectorPair(box)[1]
	m.dragline.From = s
	m.dragline.To = cursor
	m.dragline.Indicator = cursor
	m.topo.bus.Publish(Event{Kind: EventPanToPoint, Point: cursor})
}

// SnapToService pins the dragline between the start service and box.
func (m *RelationModule) SnapToService(box *BoundingBox) {
	if box == nil || box == m.startService {
		return
	}
	m.dropService = box
	if m.dragline != nil && m.startService != nil {
		pair := box.ConnectorPair(m.startService)
		m.dragline.From = pair[1]
		m.dragline.To = pair[0]
		m.dragline.Class = draglineSnapped
		m.dragline.OverService = true
		m.draglineOverService = true
	}
}

func (m *RelationModule) SnapOutOfService() {
	m.clearRelationSettings()
	if m.dragline != nil {
		m.dragline.Class = draglineDragging
		m.dragline.OverService = false
		m.draglineOverService = false
	}
	if m.startService != nil {
		m.clickAddRelation = true
		m.topo.SetBuildingRelation(true)
	}
}

// AddRelationDragEnd resolves a drop: on a target it checks the endpoints,
// anywhere else it cancels.
func (m *RelationModule) AddRelationDragEnd() {
	t := m.topo
	target := m.dropService
	t.SetBuildingRelation(false)
	m.cursorBox = nil
	if target != nil {
		m.AmbiguousAddRelationCheck(target)
	} else {
		m.CancelRelationBuild()
	}
	t.bus.Fire(EventAddRelationEnd)
}

// AmbiguousAddRelationCheck creates the relation when exactly one endpoint
// pair fits and otherwise opens a menu of the candidates.
func (m *RelationModule) AmbiguousAddRelationCheck(target *BoundingBox) {
	endpoints := m.possibleEndpoints[target.ID]
	switch len(endpoints) {
	case 0:
		m.CancelRelationBuild()
		return
	case 1:
		m.AddRelationEnd(endpointsItem(endpoints[0]))
		return
	}

	sorted := make([]EndpointPair, len(endpoints))
	copy(sorted, endpoints)
	sortEndpointPairs(sorted)
	for i := range sorted {
		for j := range sorted[i] {
			sorted[i][j].DisplayName = serviceDisplayName(m.topo.store, sorted[i][j].Service)
		}
	}

	m.clickAddRelation = false
	m.ambiguous = &AmbiguousMenu{
		Target:    target,
		Endpoints: sorted,
		Position:  m.topo.Transform().Apply(target.Center()),
	}
}

func endpointsItem(ep EndpointPair) [2]RelationEndpoint {
	return [2]RelationEndpoint{
		{Application: ep[0].Service, Name: ep[0].Name, Role: "server"},
		{Application: ep[1].Service, Name: ep[1].Name, Role: "client"},
	}
}

// AddRelationEnd finishes the build and creates the relation. Peer
// relations are ignored.
func (m *RelationModule) AddRelationEnd(endpoints [2]RelationEndpoint) {
	m.CancelRelationBuild()
	m.clearRelationSettings()
	if endpoints[0].Application == endpoints[1].Application {
		return
	}
	t := m.topo
	CreateRelation(t.store, t.env, endpoints, m.logger)
	t.Update()
}

// CancelRelationBuild removes the dragline, restores faded services and
// returns clicks to their default action.
func (m *RelationModule) CancelRelationBuild() {
	t := m.topo
	m.dragline = nil
	m.cursorBox = nil
	m.clickAddRelation = false
	m.ambiguous = nil
	t.SetBuildingRelation(false)
	if m.startService != nil {
		t.Services.Show(nil)
	}
	m.startService = nil
	m.possibleEndpoints = nil
	for _, b := range t.boxes {
		b.Selectable = false
	}
	t.Services.ResetClickAction()
	t.Update()
	t.bus.Fire(EventAddRelationEnd)
}

func (m *RelationModule) clearRelationSettings() {
	m.topo.SetBuildingRelation(false)
	m.clickAddRelation = false
	m.draglineOverService = false
	m.dropService = nil
}

// ClearState drops any build in progress and closes both menus.
func (m *RelationModule) ClearState() {
	m.relationMenuActive = false
	m.relationMenuRelation = nil
	m.relationMenu = nil
	m.clearRelationSettings()
	m.CancelRelationBuild()
}
