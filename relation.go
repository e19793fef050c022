package main

import (
	"log/slog"
	"math"
	"sort"
	"strings"
)

// DecoratedRelation is a relation joined to the boxes at both ends.
type DecoratedRelation struct {
	*Relation
	Source        *BoundingBox
	Target        *BoundingBox
	SourceID      string
	TargetID      string
	CompositeID   string
	IsSubordinate bool
}

func NewDecoratedRelation(r *Relation, source, target *BoundingBox) *DecoratedRelation {
	d := &DecoratedRelation{
		Relation: r,
		Source:   source,
		Target:   target,
		SourceID: r.Endpoints[0].String(),
		TargetID: r.Endpoints[1].String(),
		CompositeID: source.ID + ":" + r.Endpoints[0].Name + "-" +
			target.ID + ":" + r.Endpoints[1].Name,
	}
	d.IsSubordinate = (source.Subordinate || target.Subordinate) && IsSubordinateRelation(r)
	return d
}

// endpointHasError reports whether a unit of the box's application is in
// error on a hook for this relation's endpoint.
func (d *DecoratedRelation) endpointHasError(box *BoundingBox) bool {
	app := box.Model()
	if app == nil {
		return false
	}
	ep := d.Endpoints[1]
	if d.Endpoints[0].Application == box.ID {
		ep = d.Endpoints[0]
	}
	hook := ep.Name + "-relation"
	for _, u := range app.Units {
		if u.AgentState != "error" {
			continue
		}
		if strings.HasPrefix(u.AgentStateData.Hook, hook) || strings.Contains(u.AgentStateInfo, hook) {
			return true
		}
	}
	return false
}

func (d *DecoratedRelation) SourceHasError() bool { return d.endpointHasError(d.Source) }
func (d *DecoratedRelation) TargetHasError() bool { return d.endpointHasError(d.Target) }

func (d *DecoratedRelation) HasRelationError() bool {
	return d.SourceHasError() || d.TargetHasError()
}

// RelationCollection is every relation drawn as one line between two
// boxes.
type RelationCollection struct {
	ID          string
	CompositeID string
	Source      *BoundingBox
	Target      *BoundingBox
	Relations   []*DecoratedRelation
}

func (c *RelationCollection) IsSubordinate() bool {
	for _, r := range c.Relations {
		if r.IsSubordinate {
			return true
		}
	}
	return false
}

func (c *RelationCollection) PendingDeletion() bool {
	for _, r := range c.Relations {
		if r.Deleted {
			return true
		}
	}
	return false
}

// AggregatedStatus applies error, pending, subordinate, healthy in that
// order of precedence.
func (c *RelationCollection) AggregatedStatus() RelationStatus {
	var pending, subordinate bool
	for _, r := range c.Relations {
		if r.HasRelationError() {
			return StatusError
		}
		pending = pending || r.Pending
		subordinate = subordinate || r.IsSubordinate
	}
	switch {
	case pending:
		return StatusPending
	case subordinate:
		return StatusSubordinate
	}
	return StatusHealthy
}

// StatusClass is the aggregated status with a pending- prefix while a
// member is marked for deletion.
func (c *RelationCollection) StatusClass() string {
	s := c.AggregatedStatus()
	if c.PendingDeletion() && (s == StatusError || s == StatusHealthy) {
		return "pending-" + string(s)
	}
	return string(s)
}

func (c *RelationCollection) Faded() bool {
	return c.Source.Fade || c.Target.Fade
}

func (c *RelationCollection) Hidden() bool {
	return c.Source.Hide || c.Target.Hide
}

func (c *RelationCollection) Involves(id string) bool {
	return c.Source.ID == id || c.Target.ID == id
}

// ToRelationCollections groups relations by the unordered pair of boxes
// they join, in order of first appearance.
func ToRelationCollections(relations []*DecoratedRelation) []*RelationCollection {
	index := make(map[string]*RelationCollection)
	var out []*RelationCollection
	for _, r := range relations {
		ids := []string{r.Source.ID, r.Target.ID}
		sort.Strings(ids)
		key := strings.Join(ids, ",")
		if c, ok := index[key]; ok {
			c.Relations = append(c.Relations, r)
			continue
		}
		c := &RelationCollection{
			ID:          r.ID,
			CompositeID: r.ID,
			Source:      r.Source,
			Target:      r.Target,
			Relations:   []*DecoratedRelation{r},
		}
		index[key] = c
		out = append(out, c)
	}
	return out
}

// RelationGeometry is the drawn form of one collection.
type RelationGeometry struct {
	Line      [2]Point
	Knobs     [2]Point
	Indicator Point
	Class     string
	Icon      string
	Faded     bool
	Hidden    bool
}

func relationIcon(status string) string {
	return "relation-icon-" + status + ".svg"
}

// iconStatus recovers the status encoded in an icon file name.
func iconStatus(icon string) string {
	s := icon
	if i := strings.LastIndex(s, "relation-icon-"); i >= 0 {
		s = s[i+len("relation-icon-"):]
	}
	s, _, _ = strings.Cut(s, ".")
	return s
}

// RelationModule renders relations and runs the add-relation gesture.
type RelationModule struct {
	topo   *Topology
	logger *slog.Logger

	relations  []*RelationCollection
	geometry   map[string]*RelationGeometry
	iconWrites int

	dragline            *Dragline
	cursorBox           *BoundingBox
	clickAddRelation    bool
	draglineOverService bool
	startService        *BoundingBox
	possibleEndpoints   map[string][]EndpointPair
	dropService         *BoundingBox

	ambiguous *AmbiguousMenu

	relationMenuActive   bool
	relationMenuRelation *RelationCollection
	relationMenu         *RelationMenu

	DisableInteraction bool
}

func NewRelationModule(t *Topology) *RelationModule {
	m := &RelationModule{
		topo:     t,
		logger:   t.logger.With("module", "relation"),
		geometry: make(map[string]*RelationGeometry),
	}
	bus := t.bus
	bus.Subscribe(EventAddRelationDragStart, func(ev Event) { m.AddRelationDragStart(ev.Box, ev.Point) })
	bus.Subscribe(EventAddRelationDrag, func(ev Event) { m.AddRelationDrag(ev.Box, ev.Point) })
	bus.Subscribe(EventAddRelationDragEnd, func(Event) { m.AddRelationDragEnd() })
	bus.Subscribe(EventCancelRelationBuild, func(Event) { m.CancelRelationBuild() })
	bus.Subscribe(EventSnapToService, func(ev Event) { m.SnapToService(ev.Box) })
	bus.Subscribe(EventSnapOutOfService, func(Event) { m.SnapOutOfService() })
	bus.Subscribe(EventServiceMoved, func(ev Event) { m.UpdateLinkEndpoints(ev.Box) })
	return m
}

func (m *RelationModule) Relations() []*RelationCollection { return m.relations }

func (m *RelationModule) Geometry(compositeID string) *RelationGeometry {
	return m.geometry[compositeID]
}

func (m *RelationModule) IconWrites() int { return m.iconWrites }

// Update recomputes the collections from the store and redraws them.
func (m *RelationModule) Update() {
	m.relations = m.DecorateRelations(m.topo.store.Relations())
	m.updateLinks()
}

// DecorateRelations drops peers and relations whose boxes do not exist yet,
// then groups the rest.
func (m *RelationModule) DecorateRelations(relations []*Relation) []*RelationCollection {
	var decorated []*DecoratedRelation
	for _, r := range relations {
		if r.IsPeer() {
			continue
		}
		source := m.topo.Box(r.Endpoints[0].Application)
		target := m.topo.Box(r.Endpoints[1].Application)
		if source == nil || target == nil {
			continue
		}
		decorated = append(decorated, NewDecoratedRelation(r, source, target))
	}
	return ToRelationCollections(decorated)
}

func (m *RelationModule) updateLinks() {
	live := make(map[string]bool, len(m.relations))
	for _, c := range m.relations {
		live[c.CompositeID] = true
		m.DrawRelation(c)
	}
	for id := range m.geometry {
		if !live[id] {
			delete(m.geometry, id)
		}
	}
	if m.relationMenuActive {
		m.reopenRelationMenu()
	}
}

// DrawRelation positions the line, knobs and indicator for a collection.
// The icon is only rewritten when the status changed.
func (m *RelationModule) DrawRelation(c *RelationCollection) *RelationGeometry {
	g := m.geometry[c.CompositeID]
	if g == nil {
		g = &RelationGeometry{}
		m.geometry[c.CompositeID] = g
	}
	pair := c.Source.ConnectorPair(c.Target)
	s, t := pair[0], pair[1]
	sRadius := c.Source.W/2 - knobInset
	tRadius := c.Target.W/2 - knobInset

	angle := math.Atan2(s.Y-t.Y, s.X-t.X)
	dot1 := Point{X: s.X - math.Cos(angle)*sRadius, Y: s.Y - math.Sin(angle)*sRadius}
	dot2 := Point{X: t.X + math.Cos(angle)*tRadius, Y: t.Y + math.Sin(angle)*tRadius}

	status := c.StatusClass()
	g.Line = pair
	g.Knobs = [2]Point{dot1, dot2}
	g.Indicator = Point{
		X: math.Max(dot1.X, dot2.X) - math.Abs(dot1.X-dot2.X)/2,
		Y: math.Max(dot1.Y, dot2.Y) - math.Abs(dot1.Y-dot2.Y)/2,
	}
	g.Class = "relation " + status
	if iconStatus(g.Icon) != status {
		g.Icon = relationIcon(status)
		m.iconWrites++
	}
	g.Faded = c.Faded()
	g.Hidden = c.Hidden()
	return g
}

// UpdateLinkEndpoints redraws only the lines touching a moved box.
func (m *RelationModule) UpdateLinkEndpoints(box *BoundingBox) {
	if box == nil {
		return
	}
	for _, c := range m.relations {
		if c.Involves(box.ID) {
			m.DrawRelation(c)
		}
	}
}

// UpdateRelationVisibility refreshes fade and hide from the end boxes.
func (m *RelationModule) UpdateRelationVisibility() {
	for _, c := range m.relations {
		if g := m.geometry[c.CompositeID]; g != nil {
			g.Faded = c.Faded()
			g.Hidden = c.Hidden()
		}
	}
}

// SubordinateRelationsForService counts what a subordinate node displays.
func (m *RelationModule) SubordinateRelationsForService(box *BoundingBox) []*RelationCollection {
	var out []*RelationCollection
	for _, c := range m.relations {
		if c.Involves(box.ID) && c.IsSubordinate() {
			out = append(out, c)
		}
	}
	return out
}

// RelationAt returns the collection whose indicator lies within radius
// logical units of p.
func (m *RelationModule) RelationAt(p Point, radius float64) *RelationCollection {
	for _, c := range m.relations {
		g := m.geometry[c.CompositeID]
		if g == nil || g.Hidden {
			continue
		}
		if g.Indicator.Dist(p) <= radius {
			return c
		}
	}
	return nil
}

// serviceDisplayName resolves ghost ids to the application's display name
// without the parentheses that mark it pending.
func serviceDisplayName(store *Store, id string) string {
	if !isGhostID(id) {
		return id
	}
	app := store.Application(id)
	if app == nil {
		return id
	}
	name := strings.TrimPrefix(app.DisplayName, "(")
	return strings.TrimSuffix(name, ")")
}
