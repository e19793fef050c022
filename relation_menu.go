package main

import (
	"fmt"
	"strings"
)

// AmbiguousMenu lists the endpoint pairs a drop could mean.
type AmbiguousMenu struct {
	Target    *BoundingBox
	Endpoints []EndpointPair
	Position  Point
}

func (a *AmbiguousMenu) Labels() []string {
	out := make([]string, len(a.Endpoints))
	for i, ep := range a.Endpoints {
		out[i] = fmt.Sprintf("%s:%s → %s:%s", ep[0].DisplayName, ep[0].Name, ep[1].DisplayName, ep[1].Name)
	}
	return out
}

func (m *RelationModule) AmbiguousMenu() *AmbiguousMenu {
	return m.ambiguous
}

// SelectAmbiguous creates the relation for entry i of the open menu.
func (m *RelationModule) SelectAmbiguous(i int) error {
	menu := m.ambiguous
	if menu == nil {
		return fmt.Errorf("no relation menu open")
	}
	if i < 0 || i >= len(menu.Endpoints) {
		return fmt.Errorf("relation menu entry %d out of range", i)
	}
	m.ambiguous = nil
	m.AddRelationEnd(endpointsItem(menu.Endpoints[i]))
	return nil
}

func (m *RelationModule) CancelAmbiguous() {
	m.ambiguous = nil
	m.CancelRelationBuild()
}

// RelationMenuItem is one relation in the relation menu.
type RelationMenuItem struct {
	RelationID  string
	Source      string
	Target      string
	Interface   string
	Pending     bool
	Error       bool
	Subordinate bool
}

func (it RelationMenuItem) String() string {
	s := it.Source + " → " + it.Target
	switch {
	case it.Error:
		s += " (error)"
	case it.Pending:
		s += " (pending)"
	}
	return s
}

type RelationMenu struct {
	CompositeID string
	Items       []RelationMenuItem
	Position    Point
}

func (m *RelationModule) RelationMenu() *RelationMenu {
	if !m.relationMenuActive {
		return nil
	}
	return m.relationMenu
}

func (m *RelationModule) RelationClick(c *RelationCollection) {
	if m.DisableInteraction || c == nil {
		return
	}
	m.ShowRelationMenu(c)
}

// ShowRelationMenu opens the menu above the midpoint of the collection's
// line.
func (m *RelationModule) ShowRelationMenu(c *RelationCollection) {
	store := m.topo.store
	items := make([]RelationMenuItem, 0, len(c.Relations))
	for _, r := range c.Relations {
		items = append(items, RelationMenuItem{
			RelationID:  r.ID,
			Source:      serviceDisplayName(store, r.Endpoints[0].Application) + ":" + r.Endpoints[0].Name,
			Target:      serviceDisplayName(store, r.Endpoints[1].Application) + ":" + r.Endpoints[1].Name,
			Interface:   r.Interface,
			Pending:     r.Pending,
			Error:       r.HasRelationError(),
			Subordinate: r.IsSubordinate,
		})
	}
	line := c.Source.ConnectorPair(c.Target)
	mid := line[0].Add(line[1]).Mul(0.5)
	m.relationMenu = &RelationMenu{
		CompositeID: c.CompositeID,
		Items:       items,
		Position:    m.topo.Transform().Apply(mid),
	}
	m.relationMenuActive = true
	m.relationMenuRelation = c
}

// reopenRelationMenu rebuilds an open menu from this pass's collections.
func (m *RelationModule) reopenRelationMenu() {
	if m.relationMenuRelation == nil {
		m.CloseRelationMenu()
		return
	}
	id := m.relationMenuRelation.CompositeID
	for _, c := range m.relations {
		if c.CompositeID == id {
			m.ShowRelationMenu(c)
			return
		}
	}
	m.CloseRelationMenu()
}

func (m *RelationModule) CloseRelationMenu() {
	m.relationMenuActive = false
	m.relationMenuRelation = nil
	m.relationMenu = nil
}

// RelationRemoveClick removes a relation unless it is a committed
// subordinate relation, which only produces an error notification.
func (m *RelationModule) RelationRemoveClick(relationID string) {
	t := m.topo
	r := t.store.Relation(relationID)
	if r == nil {
		m.logger.Warn("remove unknown relation", "id", relationID)
		return
	}
	subordinate := m.isSubordinate(r)
	t.bus.Fire(EventClearState)
	if subordinate && !r.Pending {
		t.store.AddNotification(Notification{
			Title:   "Subordinate relations can't be removed",
			Message: "Subordinate relations can't be removed",
			Level:   LevelError,
		})
	} else {
		DestroyRelations(t.store, t.env, []string{relationID}, m.logger)
	}
	t.bus.Fire(EventClearState)
}

func (m *RelationModule) isSubordinate(r *Relation) bool {
	if cols := m.DecorateRelations([]*Relation{r}); len(cols) > 0 {
		return cols[0].IsSubordinate()
	}
	store := m.topo.store
	for _, ep := range r.Endpoints {
		if app := store.Application(ep.Application); app != nil && app.Subordinate {
			return IsSubordinateRelation(r)
		}
	}
	return false
}

// InspectRelationClick opens the inspector on the application named by an
// "app:endpoint" string.
func (m *RelationModule) InspectRelationClick(endpoint string) {
	id, _, _ := strings.Cut(endpoint, ":")
	if m.topo.router == nil {
		return
	}
	m.topo.router.ChangeState(StateChange{Inspector: &InspectorState{ID: strings.TrimSpace(id)}})
}
