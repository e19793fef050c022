package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEndpoints(t *testing.T) {
	store := NewStore()
	store.AddCharm(testCharm("wordpress",
		[]CharmRelation{{Name: "website", Interface: "http"}},
		[]CharmRelation{{Name: "db", Interface: "mysql"}}))
	store.AddCharm(testCharm("mysql", []CharmRelation{{Name: "db", Interface: "mysql"}}, nil))
	store.AddCharm(testCharm("haproxy", nil, []CharmRelation{{Name: "reverseproxy", Interface: "http"}}))
	unloaded := testCharm("unknown", []CharmRelation{{Name: "db", Interface: "mysql"}}, nil)
	unloaded.Loaded = false
	store.AddCharm(unloaded)

	wordpress := testApp("wordpress", "wordpress", 0, 0)
	store.AddApplication(wordpress)
	store.AddApplication(testApp("mysql", "mysql", 0, 0))
	store.AddApplication(testApp("haproxy", "haproxy", 0, 0))
	store.AddApplication(testApp("unknown", "unknown", 0, 0))

	got := GetEndpoints(store, wordpress)

	require.Len(t, got["mysql"], 1)
	assert.Equal(t, "db", got["mysql"][0][0].Name)
	assert.Equal(t, "wordpress", got["mysql"][0][0].Service)
	assert.Equal(t, "mysql", got["mysql"][0][1].Service)

	require.Len(t, got["haproxy"], 1)
	assert.Equal(t, "website", got["haproxy"][0][0].Name)
	assert.Equal(t, "reverseproxy", got["haproxy"][0][1].Name)

	assert.NotContains(t, got, "unknown", "charms that are not loaded offer nothing")
	assert.NotContains(t, got, "wordpress")
}

func TestGetEndpointsSkipsExistingRelations(t *testing.T) {
	store := NewStore()
	store.AddCharm(testCharm("wordpress", nil, []CharmRelation{{Name: "db", Interface: "mysql"}}))
	store.AddCharm(testCharm("mysql", []CharmRelation{{Name: "db", Interface: "mysql"}}, nil))
	wordpress := testApp("wordpress", "wordpress", 0, 0)
	store.AddApplication(wordpress)
	store.AddApplication(testApp("mysql", "mysql", 0, 0))
	store.AddRelation(&Relation{
		ID:        "existing",
		Interface: "mysql",
		Endpoints: [2]RelationEndpoint{{Application: "wordpress", Name: "db"}, {Application: "mysql", Name: "db"}},
	})

	assert.Empty(t, GetEndpoints(store, wordpress))
}

func TestGetEndpointsSubordinateSeries(t *testing.T) {
	store := NewStore()
	store.AddCharm(testCharm("wordpress", nil, nil))
	logger := testCharm("logger", nil, []CharmRelation{{Name: "juju-info", Interface: "juju-info", Scope: "container"}})
	logger.Subordinate = true
	logger.Series = []string{"focal"}
	store.AddCharm(logger)
	wordpress := testApp("wordpress", "wordpress", 0, 0)
	store.AddApplication(wordpress)
	store.AddApplication(testApp("logger", "logger", 0, 0))

	assert.Empty(t, GetEndpoints(store, wordpress), "no shared series")

	logger.Series = append(logger.Series, "jammy")
	got := GetEndpoints(store, wordpress)
	require.Len(t, got["logger"], 1)
	assert.Equal(t, jujuInfo, got["logger"][0][0].Name)
}

func TestGetEndpointsWithoutCharm(t *testing.T) {
	store := NewStore()
	app := testApp("a", "missing", 0, 0)
	store.AddApplication(app)

	assert.Empty(t, GetEndpoints(store, app))
	assert.Empty(t, GetEndpoints(store, nil))
}

func TestSortEndpointPairs(t *testing.T) {
	pairs := []EndpointPair{
		{{Name: "db"}, {Name: "db-admin"}},
		{{Name: "cache"}, {Name: "memcache"}},
		{{Name: "db"}, {Name: "db"}},
	}
	sortEndpointPairs(pairs)

	var keys []string
	for _, p := range pairs {
		keys = append(keys, p.SortKey())
	}
	assert.Equal(t, []string{"cachememcache", "dbdb", "dbdb-admin"}, keys)
}
