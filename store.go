package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownApplication = errors.New("unknown application")
	ErrUnknownRelation    = errors.New("unknown relation")
)

// Annotations holds persisted GUI hints such as gui-x and gui-y.
type Annotations map[string]float64

func (a Annotations) Get(key string) (float64, bool) {
	if a == nil {
		return 0, false
	}
	v, ok := a[key]
	return v, ok
}

func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	out := make(Annotations, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

type AgentStateData struct {
	Hook string `yaml:"hook,omitempty"`
}

type Unit struct {
	ID             string         `yaml:"id" validate:"required"`
	AgentState     string         `yaml:"agent_state,omitempty"`
	AgentStateInfo string         `yaml:"agent_state_info,omitempty"`
	AgentStateData AgentStateData `yaml:"agent_state_data,omitempty"`
}

type Application struct {
	ID          string      `yaml:"id" validate:"required"`
	Name        string      `yaml:"name"`
	DisplayName string      `yaml:"display_name,omitempty"`
	Charm       string      `yaml:"charm" validate:"required"`
	Icon        string      `yaml:"icon,omitempty"`
	Series      []string    `yaml:"series,omitempty"`
	Subordinate bool        `yaml:"subordinate,omitempty"`
	Life        string      `yaml:"life,omitempty"`
	Pending     bool        `yaml:"pending,omitempty"`
	Deleted     bool        `yaml:"deleted,omitempty"`
	Highlighted bool        `yaml:"-"`
	Fade        bool        `yaml:"-"`
	Hide        bool        `yaml:"-"`
	Annotations Annotations `yaml:"annotations,omitempty"`
	Units       []*Unit     `yaml:"units,omitempty" validate:"dive"`
}

func (a *Application) HasErrors() bool {
	for _, u := range a.Units {
		if u.AgentState == "error" {
			return true
		}
	}
	return false
}

func (a *Application) IsAlive() bool {
	return a.Life != "dead"
}

func (a *Application) Unit(id string) *Unit {
	for _, u := range a.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// DescribeUnit panics for unknown ids: callers only pass ids taken from
// the store, so a miss means the store is inconsistent.
func (a *Application) DescribeUnit(id string) string {
	u := a.Unit(id)
	if u == nil {
		panic(fmt.Sprintf("unit %q not found in application %q", id, a.ID))
	}
	state := u.AgentState
	if state == "" {
		state = "uncommitted"
	}
	return fmt.Sprintf("%s (%s)", u.ID, state)
}

type RelationEndpoint struct {
	Application string `yaml:"application" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Role        string `yaml:"role,omitempty"`
}

func (e RelationEndpoint) String() string {
	return e.Application + ":" + e.Name
}

type Relation struct {
	ID        string              `yaml:"id" validate:"required"`
	Interface string              `yaml:"interface,omitempty"`
	Scope     string              `yaml:"scope,omitempty"`
	Endpoints [2]RelationEndpoint `yaml:"endpoints"`
	Pending   bool                `yaml:"pending,omitempty"`
	Deleted   bool                `yaml:"deleted,omitempty"`
}

func (r *Relation) IsPeer() bool {
	return r.Endpoints[0].Application == r.Endpoints[1].Application
}

type CharmRelation struct {
	Name      string `yaml:"name" validate:"required"`
	Interface string `yaml:"interface" validate:"required"`
	Scope     string `yaml:"scope,omitempty"`
}

type Charm struct {
	ID          string          `yaml:"id" validate:"required"`
	Name        string          `yaml:"name"`
	Icon        string          `yaml:"icon,omitempty"`
	Loaded      bool            `yaml:"loaded"`
	Series      []string        `yaml:"series,omitempty"`
	Subordinate bool            `yaml:"subordinate,omitempty"`
	Provides    []CharmRelation `yaml:"provides,omitempty" validate:"dive"`
	Requires    []CharmRelation `yaml:"requires,omitempty" validate:"dive"`
}

type NotificationLevel string

const (
	LevelInfo  NotificationLevel = "info"
	LevelError NotificationLevel = "error"
)

type Notification struct {
	Title   string
	Message string
	Level   NotificationLevel
	At      time.Time
}

// Store is the live domain model the topology renders.
type Store struct {
	applications  []*Application
	relations     []*Relation
	charms        map[string]*Charm
	notifications []Notification
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		charms: make(map[string]*Charm),
		now:    time.Now,
	}
}

// Replace swaps in a freshly loaded model. Ghost applications and pending
// relations exist only here, so they survive; view flags carry over.
func (s *Store) Replace(apps []*Application, relations []*Relation, charms []*Charm) {
	old := make(map[string]*Application, len(s.applications))
	var ghosts []*Application
	for _, a := range s.applications {
		old[a.ID] = a
		if a.Pending {
			ghosts = append(ghosts, a)
		}
	}
	var pending []*Relation
	for _, r := range s.relations {
		if r.Pending {
			pending = append(pending, r)
		}
	}

	s.applications = nil
	for _, a := range apps {
		if prev, ok := old[a.ID]; ok {
			a.Fade, a.Hide, a.Highlighted = prev.Fade, prev.Hide, prev.Highlighted
		}
		s.AddApplication(a)
	}
	for _, g := range ghosts {
		if s.Application(g.ID) == nil {
			s.applications = append(s.applications, g)
		}
	}

	s.relations = nil
	for _, r := range relations {
		s.AddRelation(r)
	}
	for _, r := range pending {
		if s.Relation(r.ID) == nil {
			s.relations = append(s.relations, r)
		}
	}

	for _, c := range charms {
		s.charms[c.ID] = c
	}
}

func (s *Store) Applications() []*Application {
	return s.applications
}

// VisibleApplications returns applications that are alive or have units in
// error.
func (s *Store) VisibleApplications() []*Application {
	out := make([]*Application, 0, len(s.applications))
	for _, a := range s.applications {
		if a.IsAlive() || a.HasErrors() {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Application(id string) *Application {
	for _, a := range s.applications {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Store) ApplicationByName(name string) *Application {
	for _, a := range s.applications {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (s *Store) AddApplication(app *Application) {
	if app.Name == "" {
		app.Name = app.ID
	}
	if app.DisplayName == "" {
		app.DisplayName = app.Name
		if app.Pending {
			app.DisplayName = "(" + app.Name + ")"
		}
	}
	if existing := s.Application(app.ID); existing != nil {
		*existing = *app
		return
	}
	s.applications = append(s.applications, app)
}

func (s *Store) RemoveApplication(id string) {
	for i, a := range s.applications {
		if a.ID == id {
			s.applications = append(s.applications[:i], s.applications[i+1:]...)
			return
		}
	}
}

// ApplicationsForCharmName lists applications deployed from a charm with
// the given metadata name.
func (s *Store) ApplicationsForCharmName(name string) []*Application {
	var out []*Application
	for _, a := range s.applications {
		if c := s.Charm(a.Charm); c != nil && c.Name == name {
			out = append(out, a)
			continue
		}
		if strings.HasSuffix(a.Charm, "/"+name) || strings.HasSuffix(a.Charm, ":"+name) || a.Charm == name {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Charm(id string) *Charm {
	return s.charms[id]
}

func (s *Store) AddCharm(c *Charm) {
	s.charms[c.ID] = c
}

func (s *Store) Charms() []*Charm {
	out := make([]*Charm, 0, len(s.charms))
	for _, c := range s.charms {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Series returns the series an application can run on: its own list, or
// the charm's when it has none.
func (s *Store) Series(app *Application) []string {
	if len(app.Series) > 0 {
		return app.Series
	}
	if c := s.Charm(app.Charm); c != nil {
		return c.Series
	}
	return nil
}

func (s *Store) Relations() []*Relation {
	return s.relations
}

func (s *Store) Relation(id string) *Relation {
	for _, r := range s.relations {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) AddRelation(r *Relation) {
	if existing := s.Relation(r.ID); existing != nil {
		*existing = *r
		return
	}
	s.relations = append(s.relations, r)
}

func (s *Store) RemoveRelation(id string) error {
	for i, r := range s.relations {
		if r.ID == id {
			s.relations = append(s.relations[:i], s.relations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove %s: %w", id, ErrUnknownRelation)
}

// HasRelationForEndpoint reports whether the endpoint already takes part in
// a relation on its interface with the given application. An empty appID
// matches any relation on the endpoint.
func (s *Store) HasRelationForEndpoint(ep EndpointRef, appID string) bool {
	for _, r := range s.relations {
		if r.Interface != ep.Type {
			continue
		}
		epMatched, appMatched := false, false
		for _, e := range r.Endpoints {
			if e.Application == ep.Service && e.Name == ep.Name {
				epMatched = true
			}
			if appID != "" && e.Application == appID {
				appMatched = true
			}
		}
		if epMatched && (appID == "" || appMatched) {
			return true
		}
	}
	return false
}

func (s *Store) AddNotification(n Notification) {
	if n.At.IsZero() {
		n.At = s.now()
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	s.notifications = append(s.notifications, n)
}

func (s *Store) Notifications() []Notification {
	return s.notifications
}

func (s *Store) LastNotification() (Notification, bool) {
	if len(s.notifications) == 0 {
		return Notification{}, false
	}
	return s.notifications[len(s.notifications)-1], true
}
