package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRelation drags from wordpress and drops on mysql.
func buildRelation(t *testing.T, rig *testRig) {
	t.Helper()
	topo := rig.topo
	source, target := topo.Box("wordpress"), topo.Box("mysql")
	require.NotNil(t, source)
	require.NotNil(t, target)

	topo.Bus().Publish(Event{Kind: EventAddRelationDragStart, Box: source, Point: source.Center()})
	require.True(t, topo.BuildingRelation())
	require.NotNil(t, topo.Relations.Dragline())
	require.True(t, target.Selectable)

	topo.Services.Hover(target)
	require.Same(t, target, topo.Relations.DropService())
	topo.Bus().Fire(EventAddRelationDragEnd)
}

func TestAddRelationSinglePair(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")

	buildRelation(t, rig)

	require.Len(t, rig.env.added, 1)
	assert.Equal(t, RelationEndpoint{Application: "wordpress", Name: "db", Role: "server"}, rig.env.added[0][0])
	assert.Equal(t, RelationEndpoint{Application: "mysql", Name: "db", Role: "client"}, rig.env.added[0][1])
	assert.Nil(t, rig.topo.Relations.AmbiguousMenu())
	assert.False(t, rig.topo.BuildingRelation())
	assert.Nil(t, rig.topo.Relations.Dragline())

	rels := rig.store.Relations()
	require.Len(t, rels, 1)
	assert.Equal(t, "relation-1", rels[0].ID)
	assert.False(t, rels[0].Pending)
	assert.Equal(t, "mysql", rels[0].Interface)
	require.Len(t, rig.topo.Relations.Relations(), 1, "the new relation is drawn")
}

func TestAddRelationAmbiguous(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db-admin", "db")

	buildRelation(t, rig)

	menu := rig.topo.Relations.AmbiguousMenu()
	require.NotNil(t, menu)
	require.Len(t, menu.Endpoints, 2)
	assert.Empty(t, rig.env.added)
	assert.Equal(t, []string{
		"wordpress:db → mysql:db",
		"wordpress:db → mysql:db-admin",
	}, menu.Labels())

	require.NoError(t, rig.topo.Relations.SelectAmbiguous(1))

	require.Len(t, rig.env.added, 1)
	assert.Equal(t, "db-admin", rig.env.added[0][1].Name)
	assert.Nil(t, rig.topo.Relations.AmbiguousMenu())
	assert.False(t, rig.topo.BuildingRelation())
	assert.Len(t, rig.store.Relations(), 1)
}

func TestAddRelationDropOnNothingCancels(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	topo := rig.topo
	source := topo.Box("wordpress")

	topo.Bus().Publish(Event{Kind: EventAddRelationDragStart, Box: source, Point: source.Center()})
	topo.Bus().Publish(Event{Kind: EventAddRelationDrag, Box: source, Point: Point{X: 2000, Y: 2000}})
	assert.Equal(t, Point{X: 2000, Y: 2000}, topo.Relations.Dragline().To)
	topo.Bus().Fire(EventAddRelationDragEnd)

	assert.Empty(t, rig.env.added)
	assert.Nil(t, topo.Relations.StartService())
	assert.False(t, topo.BuildingRelation())
	for _, b := range topo.Boxes() {
		assert.False(t, b.Fade)
		assert.False(t, b.Selectable)
	}
}

func TestStartRelationFadesInvalidTargets(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	rig.store.AddCharm(testCharm("ntp", nil, nil))
	rig.store.AddApplication(testApp("ntp", "ntp", 0, 600))
	rig.topo.Update()

	rig.topo.Relations.AddRelationStart(rig.topo.Box("wordpress"))

	assert.True(t, rig.topo.Box("ntp").Fade)
	assert.False(t, rig.topo.Box("ntp").Selectable)
	assert.False(t, rig.topo.Box("mysql").Fade)
	assert.Equal(t, ClickAmbiguousAddRelationCheck, rig.topo.Services.ClickAction())

	rig.topo.Services.Hover(rig.topo.Box("ntp"))
	assert.Nil(t, rig.topo.Relations.DropService(), "faded services do not snap")

	rig.topo.Bus().Fire(EventCancelRelationBuild)
	assert.False(t, rig.topo.Box("ntp").Fade)
	assert.Equal(t, ClickShowServiceDetails, rig.topo.Services.ClickAction())
}

func TestClickModeRelation(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	topo := rig.topo

	topo.Relations.AddRelationStart(topo.Box("wordpress"))
	target := topo.Box("mysql")
	topo.Services.ServiceClick(target, topo.Transform().Apply(target.Center()))

	assert.Len(t, rig.env.added, 1)
	assert.Equal(t, ClickShowServiceDetails, topo.Services.ClickAction())
}

func TestSecondRelationStartIsIgnored(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	topo := rig.topo
	wordpress, mysql := topo.Box("wordpress"), topo.Box("mysql")

	topo.Relations.AddRelationStart(wordpress)
	topo.Services.Hover(mysql)
	require.Same(t, mysql, topo.Relations.DropService())
	topo.Services.Hover(nil)
	assert.True(t, topo.BuildingRelation(), "moving off a target keeps the build active")

	topo.Relations.AddRelationDragStart(mysql, mysql.Center())
	topo.Relations.AddRelationStart(mysql)

	assert.Same(t, wordpress, topo.Relations.StartService())
	assert.Nil(t, topo.Relations.Dragline())

	topo.Services.ServiceClick(mysql, topo.Transform().Apply(mysql.Center()))
	assert.Len(t, rig.env.added, 1)
}

func TestAddRelationFailureNotifies(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	rig.env.addErr = errors.New("controller unavailable")

	buildRelation(t, rig)

	assert.Empty(t, rig.store.Relations(), "the pending relation is dropped")
	n, ok := rig.store.LastNotification()
	require.True(t, ok)
	assert.Equal(t, LevelError, n.Level)
	assert.Contains(t, n.Message, "controller unavailable")
}

func TestRelationBetweenGhostsStaysPending(t *testing.T) {
	store := NewStore()
	ghost := &Application{ID: ghostID(), Name: "wp", Charm: "wordpress", Pending: true}
	store.AddApplication(ghost)
	store.AddApplication(&Application{ID: "mysql", Charm: "mysql"})
	env := &fakeEnv{}

	CreateRelation(store, env, [2]RelationEndpoint{
		{Application: ghost.ID, Name: "db"},
		{Application: "mysql", Name: "db"},
	}, nil)

	assert.Empty(t, env.added)
	require.Len(t, store.Relations(), 1)
	assert.True(t, store.Relations()[0].Pending)
	assert.Equal(t, "pending-"+ghost.ID+":dbmysql:db", store.Relations()[0].ID)
}

// subordinateRig relates wordpress to a subordinate logger on juju-info.
func subordinateRig(t *testing.T, pending bool) *testRig {
	rig := newTestRig(t, nil)
	rig.store.AddCharm(testCharm("wordpress", nil, nil))
	logger := testCharm("logger", nil, []CharmRelation{{Name: "juju-info", Interface: "juju-info", Scope: "container"}})
	logger.Subordinate = true
	rig.store.AddCharm(logger)
	rig.store.AddApplication(testApp("wordpress", "wordpress", 0, 0))
	sub := testApp("logger", "logger", 400, 0)
	sub.Subordinate = true
	rig.store.AddApplication(sub)
	rig.store.AddRelation(&Relation{
		ID:        "wordpress:juju-info logger:juju-info",
		Interface: "juju-info",
		Scope:     "container",
		Endpoints: [2]RelationEndpoint{{Application: "wordpress", Name: "juju-info"}, {Application: "logger", Name: "juju-info"}},
		Pending:   pending,
	})
	rig.topo.Update()
	return rig
}

func TestRemoveCommittedSubordinateRelation(t *testing.T) {
	rig := subordinateRig(t, false)
	before := len(rig.store.Notifications())

	rig.topo.Relations.RelationRemoveClick("wordpress:juju-info logger:juju-info")

	assert.Empty(t, rig.env.removed, "no destroy call")
	assert.Len(t, rig.store.Notifications(), before+1)
	n, _ := rig.store.LastNotification()
	assert.Equal(t, LevelError, n.Level)
	assert.Len(t, rig.store.Relations(), 1)
}

func TestRemovePendingSubordinateRelation(t *testing.T) {
	rig := subordinateRig(t, true)

	rig.topo.Relations.RelationRemoveClick("wordpress:juju-info logger:juju-info")

	assert.Empty(t, rig.env.removed, "pending relations never reach the environment")
	assert.Empty(t, rig.store.Relations())
	assert.Empty(t, rig.topo.Relations.Relations())
}

func TestRemoveRelation(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	buildRelation(t, rig)

	rig.topo.Relations.RelationRemoveClick("relation-1")

	assert.Equal(t, []string{"relation-1"}, rig.env.removed)
	assert.Empty(t, rig.store.Relations())
}

func TestDestroyRelationFailureNotifies(t *testing.T) {
	store := NewStore()
	store.AddRelation(&Relation{ID: "r1", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "x"}, {Application: "b", Name: "y"}}})
	env := &fakeEnv{removeErr: errors.New("boom")}

	DestroyRelations(store, env, []string{"r1", "missing"}, nil)

	assert.Equal(t, []string{"r1"}, env.removed)
	assert.Len(t, store.Relations(), 1)
	n, ok := store.LastNotification()
	require.True(t, ok)
	assert.Equal(t, "Error deleting relation", n.Title)
}

func decorated(r *Relation, source, target *BoundingBox) *DecoratedRelation {
	return NewDecoratedRelation(r, source, target)
}

func TestRelationCollections(t *testing.T) {
	a := newTestBox(0, 0, false, false)
	a.ID = "a"
	b := newTestBox(300, 0, false, false)
	b.ID = "b"
	c := newTestBox(0, 300, false, false)
	c.ID = "c"

	ab1 := &Relation{ID: "1", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "x"}, {Application: "b", Name: "y"}}}
	ab2 := &Relation{ID: "2", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "z"}, {Application: "b", Name: "w"}}}
	ba := &Relation{ID: "3", Endpoints: [2]RelationEndpoint{{Application: "b", Name: "p"}, {Application: "a", Name: "q"}}}
	ac := &Relation{ID: "4", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "x"}, {Application: "c", Name: "y"}}}

	cols := ToRelationCollections([]*DecoratedRelation{
		decorated(ab1, a, b), decorated(ab2, a, b), decorated(ac, a, c),
	})
	require.Len(t, cols, 2)
	assert.Len(t, cols[0].Relations, 2)
	assert.Equal(t, "1", cols[0].ID)
	assert.Len(t, cols[1].Relations, 1)

	cols = ToRelationCollections([]*DecoratedRelation{decorated(ab1, a, b), decorated(ba, b, a)})
	assert.Len(t, cols, 1, "direction does not split a collection")
}

func TestPeerRelationsAreNotDrawn(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.AddApplication(testApp("a", "cs:a", 0, 0))
	rig.store.AddRelation(&Relation{ID: "peer", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "cluster"}, {Application: "a", Name: "cluster"}}})
	rig.topo.Update()

	assert.Empty(t, rig.topo.Relations.Relations())
}

func TestAggregatedStatus(t *testing.T) {
	a := newTestBox(0, 0, false, false)
	a.ID = "a"
	a.model = &Application{ID: "a", Units: []*Unit{{
		ID:             "a/0",
		AgentState:     "error",
		AgentStateData: AgentStateData{Hook: "db-relation-changed"},
	}}}
	b := newTestBox(300, 0, false, false)
	b.ID = "b"
	b.model = &Application{ID: "b"}

	broken := &Relation{ID: "1", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "db"}, {Application: "b", Name: "db"}}}
	healthy := &Relation{ID: "2", Endpoints: [2]RelationEndpoint{{Application: "a", Name: "website"}, {Application: "b", Name: "proxy"}}}
	pending := &Relation{ID: "3", Pending: true, Endpoints: [2]RelationEndpoint{{Application: "a", Name: "cache"}, {Application: "b", Name: "cache"}}}

	tests := []struct {
		name      string
		relations []*Relation
		want      RelationStatus
	}{
		{"error wins over healthy", []*Relation{healthy, broken}, StatusError},
		{"pending wins over healthy", []*Relation{healthy, pending}, StatusPending},
		{"error wins over pending", []*Relation{pending, broken}, StatusError},
		{"healthy alone", []*Relation{healthy}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rels []*DecoratedRelation
			for _, r := range tt.relations {
				rels = append(rels, decorated(r, a, b))
			}
			cols := ToRelationCollections(rels)
			require.Len(t, cols, 1)
			assert.Equal(t, tt.want, cols[0].AggregatedStatus())
		})
	}
}

func TestStatusClassMarksPendingDeletion(t *testing.T) {
	a := newTestBox(0, 0, false, false)
	a.ID = "a"
	b := newTestBox(300, 0, false, false)
	b.ID = "b"
	r := &Relation{ID: "1", Deleted: true, Endpoints: [2]RelationEndpoint{{Application: "a", Name: "x"}, {Application: "b", Name: "y"}}}

	c := ToRelationCollections([]*DecoratedRelation{decorated(r, a, b)})[0]
	assert.Equal(t, "pending-healthy", c.StatusClass())
}

func TestDrawRelationOnlyRewritesIconOnStatusChange(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	buildRelation(t, rig)
	rel := rig.topo.Relations
	writes := rel.IconWrites()

	rig.topo.Update()
	assert.Equal(t, writes, rel.IconWrites())

	rig.store.Application("wordpress").Units[0].AgentState = "error"
	rig.store.Application("wordpress").Units[0].AgentStateInfo = "hook failed: \"db-relation-joined\""
	rig.topo.Update()
	assert.Equal(t, writes+1, rel.IconWrites())

	c := rel.Relations()[0]
	g := rel.Geometry(c.CompositeID)
	require.NotNil(t, g)
	assert.Equal(t, "relation-icon-error.svg", g.Icon)
	assert.Equal(t, "relation error", g.Class)
}

func TestMovingBoxRedrawsItsRelations(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	buildRelation(t, rig)
	topo := rig.topo
	c := topo.Relations.Relations()[0]
	before := *topo.Relations.Geometry(c.CompositeID)

	box := topo.Box("mysql")
	topo.Services.DragStart(box, rig.topo.Now())
	topo.Services.Drag(box, Point{X: 0, Y: 400}, box.Center(), rig.topo.Now())

	after := topo.Relations.Geometry(c.CompositeID)
	assert.NotEqual(t, before.Knobs, after.Knobs)
}

func TestRelationMenu(t *testing.T) {
	rig := newTestRig(t, nil)
	wordpressAndMySQL(rig, "db")
	buildRelation(t, rig)
	rel := rig.topo.Relations
	c := rel.Relations()[0]
	g := rel.Geometry(c.CompositeID)

	require.Same(t, c, rel.RelationAt(g.Indicator, 1))
	rel.RelationClick(c)

	menu := rel.RelationMenu()
	require.NotNil(t, menu)
	require.Len(t, menu.Items, 1)
	assert.Equal(t, "relation-1", menu.Items[0].RelationID)
	assert.Equal(t, "wordpress:db → mysql:db", menu.Items[0].String())

	rig.topo.Update()
	require.NotNil(t, rel.RelationMenu(), "an update keeps the menu open")

	rel.InspectRelationClick(menu.Items[0].Source)
	require.NotNil(t, rig.router.last().Inspector)
	assert.Equal(t, "wordpress", rig.router.last().Inspector.ID)

	require.NoError(t, rig.store.RemoveRelation("relation-1"))
	rig.topo.Update()
	assert.Nil(t, rel.RelationMenu(), "the menu closes when its relation goes away")
}

func TestServiceDisplayName(t *testing.T) {
	store := NewStore()
	id := ghostID()
	store.AddApplication(&Application{ID: id, Name: "wordpress", Charm: "wordpress", Pending: true})

	assert.Equal(t, "wordpress", serviceDisplayName(store, id))
	assert.Equal(t, "mysql", serviceDisplayName(store, "mysql"))
}
