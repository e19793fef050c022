package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Env is the transport to the controller: position annotations and
// relation mutation.
type Env interface {
	UpdateAnnotations(entityID, kind string, annotations Annotations) error
	AddRelation(a, b RelationEndpoint) (string, error)
	RemoveRelation(id string) error
}

// InspectorState selects what the inspector panel shows. LocalType is set
// for a dropped local charm: "new" or "update".
type InspectorState struct {
	ID        string
	LocalType string
	LocalFile string
}

// StateChange is a partial state tree. A nil Inspector with Clear set
// closes the inspector.
type StateChange struct {
	Inspector    *InspectorState
	ControlPanel bool
	Clear        bool
}

type Router interface {
	ChangeState(change StateChange)
}

type Importer interface {
	ImportBundleFile(path string) error
	ImportBundleYAML(text string) error
	GetBundleYAML(id string) (string, error)
}

// GhostAttributes are the placement hints attached to a drop deploy.
type GhostAttributes struct {
	Coordinates Point
	Icon        string
}

type Deployer interface {
	InitiateDeploy(charm *Charm, ghost GhostAttributes) (*Application, error)
}

// ghostID returns a temporary application id. The trailing $ marks it as a
// ghost so display code resolves it through the live entity.
func ghostID() string {
	return uuid.NewString() + "$"
}

func isGhostID(id string) bool {
	return strings.Contains(id, "$")
}

// LocalEnv applies mutations straight to the store and saves the model
// file after each one.
type LocalEnv struct {
	store  *Store
	save   func() error
	logger *slog.Logger
}

func NewLocalEnv(store *Store, save func() error, logger *slog.Logger) *LocalEnv {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalEnv{store: store, save: save, logger: logger.With("module", "env")}
}

func (e *LocalEnv) persist() error {
	if e.save == nil {
		return nil
	}
	if err := e.save(); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func (e *LocalEnv) UpdateAnnotations(entityID, kind string, annotations Annotations) error {
	app := e.store.Application(entityID)
	if app == nil {
		return fmt.Errorf("annotate %s %s: %w", kind, entityID, ErrUnknownApplication)
	}
	if app.Annotations == nil {
		app.Annotations = make(Annotations, len(annotations))
	}
	for k, v := range annotations {
		app.Annotations[k] = v
	}
	e.logger.Debug("annotations updated", "id", entityID, "kind", kind)
	return e.persist()
}

func (e *LocalEnv) AddRelation(a, b RelationEndpoint) (string, error) {
	for _, ep := range []RelationEndpoint{a, b} {
		if e.store.Application(ep.Application) == nil {
			return "", fmt.Errorf("add relation %s %s: %w", a, b, ErrUnknownApplication)
		}
	}
	id := a.String() + " " + b.String()
	iface, scope := relationMatch(e.store, a, b)
	var prev *Relation
	if r := e.store.Relation(id); r != nil {
		saved := *r
		prev = &saved
	}
	e.store.AddRelation(&Relation{
		ID:        id,
		Interface: iface,
		Scope:     scope,
		Endpoints: [2]RelationEndpoint{a, b},
	})
	if err := e.persist(); err != nil {
		if prev != nil {
			e.store.AddRelation(prev)
		} else {
			_ = e.store.RemoveRelation(id)
		}
		return "", err
	}
	e.logger.Info("relation added", "id", id)
	return id, nil
}

func (e *LocalEnv) RemoveRelation(id string) error {
	prev := e.store.Relation(id)
	if err := e.store.RemoveRelation(id); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		e.store.AddRelation(prev)
		return err
	}
	e.logger.Info("relation removed", "id", id)
	return nil
}

// LocalRouter keeps the last requested state for the UI to render.
type LocalRouter struct {
	current  StateChange
	onChange func(StateChange)
}

func NewLocalRouter(onChange func(StateChange)) *LocalRouter {
	return &LocalRouter{onChange: onChange}
}

func (r *LocalRouter) ChangeState(change StateChange) {
	r.current = change
	if r.onChange != nil {
		r.onChange(change)
	}
}

func (r *LocalRouter) Current() StateChange {
	return r.current
}

// bundleFile is the subset of a bundle document needed to add its
// applications and relations as ghosts.
type bundleFile struct {
	Applications map[string]bundleApplication `yaml:"applications"`
	Services     map[string]bundleApplication `yaml:"services"`
	Relations    [][]string                   `yaml:"relations"`
}

type bundleApplication struct {
	Charm       string            `yaml:"charm"`
	NumUnits    int               `yaml:"num_units"`
	Annotations map[string]string `yaml:"annotations"`
}

// LocalImporter imports bundles into the store as pending applications.
type LocalImporter struct {
	store   *Store
	bundles map[string]string
	logger  *slog.Logger
}

func NewLocalImporter(store *Store, bundles map[string]string, logger *slog.Logger) *LocalImporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalImporter{store: store, bundles: bundles, logger: logger.With("module", "importer")}
}

func (im *LocalImporter) ImportBundleFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bundle %s: %w", filepath.Base(path), err)
	}
	return im.ImportBundleYAML(string(data))
}

func (im *LocalImporter) ImportBundleYAML(text string) error {
	var b bundleFile
	if err := yaml.Unmarshal([]byte(text), &b); err != nil {
		return fmt.Errorf("parse bundle: %w", err)
	}
	apps := b.Applications
	if len(apps) == 0 {
		apps = b.Services
	}
	if len(apps) == 0 {
		return fmt.Errorf("bundle has no applications: %w", ErrInvalidModel)
	}

	order := make([]string, 0, len(apps))
	for name := range apps {
		order = append(order, name)
	}
	sort.Strings(order)

	names := make(map[string]string, len(apps))
	for _, name := range order {
		ba := apps[name]
		app := &Application{
			ID:      ghostID(),
			Name:    name,
			Charm:   ba.Charm,
			Pending: true,
		}
		if c := im.store.Charm(ba.Charm); c != nil {
			app.Subordinate = c.Subordinate
		}
		for i := 0; i < ba.NumUnits; i++ {
			app.Units = append(app.Units, &Unit{ID: fmt.Sprintf("%s/%d", name, i)})
		}
		app.Annotations = bundleAnnotations(ba.Annotations)
		im.store.AddApplication(app)
		names[name] = app.ID
	}

	for _, pair := range b.Relations {
		if len(pair) != 2 {
			continue
		}
		a, aok := splitEndpoint(pair[0], names)
		z, zok := splitEndpoint(pair[1], names)
		if !aok || !zok {
			im.logger.Warn("skipping bundle relation", "relation", pair)
			continue
		}
		im.store.AddRelation(&Relation{
			ID:        pendingRelationID(a, z),
			Interface: relationInterface(im.store, a, z),
			Endpoints: [2]RelationEndpoint{a, z},
			Pending:   true,
		})
	}
	im.logger.Info("bundle imported", "applications", len(apps), "relations", len(b.Relations))
	return nil
}

func (im *LocalImporter) GetBundleYAML(id string) (string, error) {
	text, ok := im.bundles[strings.TrimPrefix(id, "cs:")]
	if !ok {
		return "", fmt.Errorf("bundle %s not found", id)
	}
	return text, nil
}

func bundleAnnotations(in map[string]string) Annotations {
	var out Annotations
	for _, key := range []string{annotationX, annotationY} {
		v, ok := in[key]
		if !ok {
			continue
		}
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			continue
		}
		if out == nil {
			out = make(Annotations, 2)
		}
		out[key] = f
	}
	return out
}

// splitEndpoint turns "app:name" into an endpoint on the imported
// application id.
func splitEndpoint(s string, names map[string]string) (RelationEndpoint, bool) {
	name, ep, ok := strings.Cut(s, ":")
	if !ok {
		return RelationEndpoint{}, false
	}
	id, ok := names[name]
	if !ok {
		return RelationEndpoint{}, false
	}
	return RelationEndpoint{Application: id, Name: ep}, true
}

// LocalDeployer adds a ghost application at the drop coordinates.
type LocalDeployer struct {
	store  *Store
	logger *slog.Logger
}

func NewLocalDeployer(store *Store, logger *slog.Logger) *LocalDeployer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalDeployer{store: store, logger: logger.With("module", "deployer")}
}

func (d *LocalDeployer) InitiateDeploy(charm *Charm, ghost GhostAttributes) (*Application, error) {
	if charm == nil || charm.ID == "" {
		return nil, fmt.Errorf("deploy: %w", ErrInvalidModel)
	}
	if d.store.Charm(charm.ID) == nil {
		d.store.AddCharm(charm)
	}
	name := charm.Name
	if name == "" {
		name = charm.ID
	}
	app := &Application{
		ID:          ghostID(),
		Name:        name,
		Charm:       charm.ID,
		Icon:        ghost.Icon,
		Subordinate: charm.Subordinate,
		Pending:     true,
		Annotations: Annotations{
			annotationX: ghost.Coordinates.X,
			annotationY: ghost.Coordinates.Y,
		},
	}
	d.store.AddApplication(app)
	d.logger.Info("ghost deployed", "id", app.ID, "charm", charm.ID)
	return app, nil
}
