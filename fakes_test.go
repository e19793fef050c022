package main

import (
	"fmt"
	"testing"
)

type annotationCall struct {
	ID          string
	Kind        string
	Annotations Annotations
}

// fakeEnv records every call. With a store set it also applies them, the
// way a real controller round trip would.
type fakeEnv struct {
	store *Store

	annotations []annotationCall
	added       [][2]RelationEndpoint
	removed     []string

	annotateErr error
	addErr      error
	removeErr   error
}

func (e *fakeEnv) UpdateAnnotations(entityID, kind string, annotations Annotations) error {
	e.annotations = append(e.annotations, annotationCall{ID: entityID, Kind: kind, Annotations: annotations.Clone()})
	if e.annotateErr != nil {
		return e.annotateErr
	}
	if e.store != nil {
		if app := e.store.Application(entityID); app != nil {
			if app.Annotations == nil {
				app.Annotations = make(Annotations)
			}
			for k, v := range annotations {
				app.Annotations[k] = v
			}
		}
	}
	return nil
}

func (e *fakeEnv) AddRelation(a, b RelationEndpoint) (string, error) {
	e.added = append(e.added, [2]RelationEndpoint{a, b})
	if e.addErr != nil {
		return "", e.addErr
	}
	return fmt.Sprintf("relation-%d", len(e.added)), nil
}

func (e *fakeEnv) RemoveRelation(id string) error {
	e.removed = append(e.removed, id)
	return e.removeErr
}

type fakeRouter struct {
	changes []StateChange
}

func (r *fakeRouter) ChangeState(change StateChange) {
	r.changes = append(r.changes, change)
}

func (r *fakeRouter) last() StateChange {
	if len(r.changes) == 0 {
		return StateChange{}
	}
	return r.changes[len(r.changes)-1]
}

type fakeImporter struct {
	files     []string
	yamls     []string
	requested []string
	bundles   map[string]string
	err       error
}

func (im *fakeImporter) ImportBundleFile(path string) error {
	im.files = append(im.files, path)
	return im.err
}

func (im *fakeImporter) ImportBundleYAML(text string) error {
	im.yamls = append(im.yamls, text)
	return im.err
}

func (im *fakeImporter) GetBundleYAML(id string) (string, error) {
	im.requested = append(im.requested, id)
	text, ok := im.bundles[id]
	if !ok {
		return "", fmt.Errorf("bundle %s not found", id)
	}
	return text, nil
}

type fakeDeployer struct {
	charms []*Charm
	ghosts []GhostAttributes
	err    error
}

func (d *fakeDeployer) InitiateDeploy(charm *Charm, ghost GhostAttributes) (*Application, error) {
	d.charms = append(d.charms, charm)
	d.ghosts = append(d.ghosts, ghost)
	if d.err != nil {
		return nil, d.err
	}
	return &Application{ID: ghostID(), Charm: charm.ID, Pending: true}, nil
}

// testRig is a topology wired to recording fakes.
type testRig struct {
	store    *Store
	env      *fakeEnv
	router   *fakeRouter
	importer *fakeImporter
	deployer *fakeDeployer
	topo     *Topology
}

func newTestRig(t *testing.T, config *Config) *testRig {
	t.Helper()
	store := NewStore()
	rig := &testRig{
		store:    store,
		env:      &fakeEnv{store: store},
		router:   &fakeRouter{},
		importer: &fakeImporter{bundles: map[string]string{}},
		deployer: &fakeDeployer{},
	}
	rig.topo = NewTopology(TopologyOptions{
		Store:    store,
		Env:      rig.env,
		Router:   rig.router,
		Importer: rig.importer,
		Deployer: rig.deployer,
		Config:   config,
	})
	return rig
}

func testCharm(id string, provides, requires []CharmRelation) *Charm {
	return &Charm{
		ID:       id,
		Name:     id,
		Loaded:   true,
		Series:   []string{"jammy"},
		Provides: provides,
		Requires: requires,
	}
}

// testApp is a committed application with one started unit, placed at
// (x, y).
func testApp(id, charm string, x, y float64) *Application {
	return &Application{
		ID:          id,
		Name:        id,
		Charm:       charm,
		Units:       []*Unit{{ID: id + "/0", AgentState: "started"}},
		Annotations: Annotations{annotationX: x, annotationY: y},
	}
}

// wordpressAndMySQL sets up two related-capable applications. mysql offers
// one or two endpoints on the mysql interface.
func wordpressAndMySQL(rig *testRig, mysqlEndpoints ...string) {
	var provides []CharmRelation
	for _, name := range mysqlEndpoints {
		provides = append(provides, CharmRelation{Name: name, Interface: "mysql"})
	}
	rig.store.AddCharm(testCharm("wordpress", []CharmRelation{{Name: "website", Interface: "http"}},
		[]CharmRelation{{Name: "db", Interface: "mysql"}}))
	rig.store.AddCharm(testCharm("mysql", provides, nil))
	rig.store.AddApplication(testApp("wordpress", "wordpress", 0, 0))
	rig.store.AddApplication(testApp("mysql", "mysql", 600, 0))
	rig.topo.Update()
}
