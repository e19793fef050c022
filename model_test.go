package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `
charms:
  - id: cs:wordpress
    name: wordpress
    loaded: true
    requires:
      - name: db
        interface: mysql
  - id: cs:mysql
    name: mysql
    loaded: true
    provides:
      - name: db
        interface: mysql
applications:
  - id: wordpress
    charm: cs:wordpress
    annotations:
      gui-x: 100
      gui-y: 200
    units:
      - id: wordpress/0
        agent_state: started
  - id: mysql
    charm: cs:mysql
relations:
  - id: wordpress:db mysql:db
    interface: mysql
    endpoints:
      - application: wordpress
        name: db
      - application: mysql
        name: db
`

func TestParseModel(t *testing.T) {
	m, err := ParseModel([]byte(sampleModel))
	require.NoError(t, err)

	require.Len(t, m.Applications, 2)
	require.Len(t, m.Relations, 1)
	require.Len(t, m.Charms, 2)
	x, ok := m.Applications[0].Annotations.Get(annotationX)
	assert.True(t, ok)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, "started", m.Applications[0].Units[0].AgentState)
}

func TestParseModelInvalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing charm", "applications:\n  - id: a\n"},
		{"duplicate application", "applications:\n  - id: a\n    charm: x\n  - id: a\n    charm: x\n"},
		{"unknown relation endpoint", "applications:\n  - id: a\n    charm: x\nrelations:\n  - id: r\n    endpoints:\n      - {application: a, name: db}\n      - {application: b, name: db}\n"},
		{"unit without id", "applications:\n  - id: a\n    charm: x\n    units:\n      - agent_state: started\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.text))
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}

	_, err := ParseModel([]byte("applications: [\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidModel)
}

func TestSaveAndLoadModel(t *testing.T) {
	store := NewStore()
	m, err := ParseModel([]byte(sampleModel))
	require.NoError(t, err)
	m.Apply(store)
	store.AddApplication(&Application{ID: ghostID(), Charm: "cs:redis", Pending: true})
	store.AddRelation(&Relation{ID: "pending-1", Pending: true,
		Endpoints: [2]RelationEndpoint{{Application: "wordpress", Name: "cache"}, {Application: "redis", Name: "cache"}}})

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, SaveModel(path, SnapshotModel(store, map[string]string{"wiki": "applications: {}\n"})))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Applications, 2, "ghosts are not saved")
	assert.Len(t, loaded.Relations, 1, "pending relations are not saved")
	assert.Equal(t, "applications: {}\n", loaded.Bundles["wiki"])
	assert.Equal(t, "wordpress", loaded.Applications[0].Name)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStoreReplaceKeepsGhostsAndViewFlags(t *testing.T) {
	store := NewStore()
	store.AddApplication(testApp("a", "cs:a", 0, 0))
	store.Application("a").Fade = true
	ghost := &Application{ID: ghostID(), Charm: "cs:b", Pending: true}
	store.AddApplication(ghost)
	store.AddRelation(&Relation{ID: "pending-x", Pending: true})

	store.Replace([]*Application{testApp("a", "cs:a", 10, 10)}, nil, nil)

	require.Len(t, store.Applications(), 2)
	assert.True(t, store.Application("a").Fade)
	assert.Same(t, ghost, store.Application(ghost.ID))
	assert.NotNil(t, store.Relation("pending-x"))
}

func TestStoreRemoveRelation(t *testing.T) {
	store := NewStore()
	store.AddRelation(&Relation{ID: "r"})

	require.NoError(t, store.RemoveRelation("r"))
	assert.Nil(t, store.Relation("r"))
	assert.ErrorIs(t, store.RemoveRelation("r"), ErrUnknownRelation)
}

func TestPendingDisplayName(t *testing.T) {
	store := NewStore()
	store.AddApplication(&Application{ID: "x", Name: "redis", Charm: "cs:redis", Pending: true})
	assert.Equal(t, "(redis)", store.Application("x").DisplayName)
}

func TestDescribeUnit(t *testing.T) {
	app := &Application{ID: "a", Units: []*Unit{{ID: "a/0"}, {ID: "a/1", AgentState: "error"}}}

	assert.Equal(t, "a/0 (uncommitted)", app.DescribeUnit("a/0"))
	assert.Equal(t, "a/1 (error)", app.DescribeUnit("a/1"))
	assert.Panics(t, func() { app.DescribeUnit("a/9") })
}

func TestStoreSeries(t *testing.T) {
	store := NewStore()
	store.AddCharm(testCharm("cs:a", nil, nil))
	app := &Application{ID: "a", Charm: "cs:a"}

	assert.Equal(t, []string{"jammy"}, store.Series(app))
	app.Series = []string{"noble"}
	assert.Equal(t, []string{"noble"}, store.Series(app))
}
