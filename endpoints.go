package main

import (
	"log/slog"
	"sort"
)

const jujuInfo = "juju-info"

// EndpointRef is one end of a potential relation: an application, one of
// its charm's relation names and that relation's interface.
type EndpointRef struct {
	Service     string
	Name        string
	Type        string
	Scope       string
	DisplayName string
}

// EndpointPair is a compatible (source end, target end) pair.
type EndpointPair [2]EndpointRef

func (p EndpointPair) SortKey() string {
	return p[0].Name + p[1].Name
}

func charmEndpoints(appID string, rels []CharmRelation) []EndpointRef {
	out := make([]EndpointRef, 0, len(rels))
	for _, r := range rels {
		out = append(out, EndpointRef{Service: appID, Name: r.Name, Type: r.Interface, Scope: r.Scope})
	}
	return out
}

// provides lists what an application offers, with the implicit juju-info
// capability unless it is a subordinate.
func provides(app *Application, charm *Charm) []EndpointRef {
	out := charmEndpoints(app.ID, charm.Provides)
	if !charm.Subordinate && !app.Subordinate && !hasEndpointNamed(out, jujuInfo) {
		out = append(out, EndpointRef{Service: app.ID, Name: jujuInfo, Type: jujuInfo, Scope: "container"})
	}
	return out
}

func hasEndpointNamed(eps []EndpointRef, name string) bool {
	for _, ep := range eps {
		if ep.Name == name {
			return true
		}
	}
	return false
}

func seriesIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// GetEndpoints computes, for every other visible application, the endpoint
// pairs that could relate it to app. Applications without a loaded charm
// contribute nothing.
func GetEndpoints(store *Store, app *Application) map[string][]EndpointPair {
	result := make(map[string][]EndpointPair)
	if app == nil {
		return result
	}
	charm := store.Charm(app.Charm)
	if charm == nil || !charm.Loaded {
		return result
	}
	originProvides := provides(app, charm)
	originRequires := charmEndpoints(app.ID, charm.Requires)
	originSeries := store.Series(app)

	for _, target := range store.VisibleApplications() {
		if target.ID == app.ID {
			continue
		}
		tc := store.Charm(target.Charm)
		if tc == nil || !tc.Loaded {
			continue
		}
		targetSubordinate := target.Subordinate || tc.Subordinate
		var pairs []EndpointPair

		for _, req := range charmEndpoints(target.ID, tc.Requires) {
			if targetSubordinate && req.Scope == "container" &&
				!seriesIntersect(store.Series(target), originSeries) {
				continue
			}
			if store.HasRelationForEndpoint(req, app.ID) {
				continue
			}
			for _, prov := range originProvides {
				if prov.Type == req.Type {
					pairs = append(pairs, EndpointPair{prov, req})
				}
			}
		}

		for _, prov := range provides(target, tc) {
			if store.HasRelationForEndpoint(prov, app.ID) {
				continue
			}
			for _, req := range originRequires {
				if req.Type == prov.Type {
					pairs = append(pairs, EndpointPair{req, prov})
				}
			}
		}

		if len(pairs) > 0 {
			result[target.ID] = pairs
		}
	}
	return result
}

// IsSubordinateRelation reports whether the relation is container scoped.
func IsSubordinateRelation(r *Relation) bool {
	return r.Scope == "container"
}

func pendingRelationID(a, b RelationEndpoint) string {
	return "pending-" + a.String() + b.String()
}

// relationInterface looks up the interface of the named relation on either
// endpoint's charm.
func relationInterface(store *Store, a, b RelationEndpoint) string {
	iface, _ := relationMatch(store, a, b)
	return iface
}

func relationMatch(store *Store, a, b RelationEndpoint) (iface, scope string) {
	for _, ep := range []RelationEndpoint{a, b} {
		app := store.Application(ep.Application)
		if app == nil {
			continue
		}
		c := store.Charm(app.Charm)
		if c == nil {
			continue
		}
		if ep.Name == jujuInfo {
			return jujuInfo, "container"
		}
		for _, r := range append(append([]CharmRelation{}, c.Provides...), c.Requires...) {
			if r.Name == ep.Name {
				if r.Scope == "" {
					r.Scope = "global"
				}
				return r.Interface, r.Scope
			}
		}
	}
	return "", "global"
}

// CreateRelation records a pending relation, then commits it through env
// when both applications are deployed. Failures become notifications.
func CreateRelation(store *Store, env Env, endpoints [2]RelationEndpoint, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a, b := endpoints[0], endpoints[1]
	pendingID := pendingRelationID(a, b)
	iface, scope := relationMatch(store, a, b)
	store.AddRelation(&Relation{
		ID:        pendingID,
		Interface: iface,
		Scope:     scope,
		Endpoints: endpoints,
		Pending:   true,
	})

	if env == nil || isGhostID(a.Application) || isGhostID(b.Application) {
		logger.Info("relation pending", "id", pendingID)
		return
	}
	id, err := env.AddRelation(a, b)
	_ = store.RemoveRelation(pendingID)
	if err != nil {
		logger.Error("add relation failed", "id", pendingID, "err", err)
		store.AddNotification(Notification{
			Title:   "Error adding relation",
			Message: "Relation " + a.String() + " to " + b.String() + " could not be created: " + err.Error(),
			Level:   LevelError,
		})
		return
	}
	store.AddRelation(&Relation{
		ID:        id,
		Interface: iface,
		Scope:     scope,
		Endpoints: endpoints,
	})
	logger.Info("relation created", "id", id)
}

// DestroyRelations removes pending relations locally and committed ones
// through env.
func DestroyRelations(store *Store, env Env, ids []string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, id := range ids {
		r := store.Relation(id)
		if r == nil {
			logger.Warn("destroy unknown relation", "id", id)
			continue
		}
		if r.Pending || env == nil {
			_ = store.RemoveRelation(id)
			continue
		}
		if err := env.RemoveRelation(id); err != nil {
			logger.Error("remove relation failed", "id", id, "err", err)
			store.AddNotification(Notification{
				Title:   "Error deleting relation",
				Message: "Relation " + id + " could not be removed: " + err.Error(),
				Level:   LevelError,
			})
			continue
		}
		// env implementations backed by the store may already have dropped it.
		_ = store.RemoveRelation(id)
		logger.Info("relation destroyed", "id", id)
	}
}

func sortEndpointPairs(pairs []EndpointPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].SortKey() < pairs[j].SortKey()
	})
}
