package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// app wires a model file to a topology. It is shared by the TUI and the
// headless export command.
type app struct {
	path     string
	config   *Config
	logger   *slog.Logger
	store    *Store
	bundles  map[string]string
	router   *LocalRouter
	env      *LocalEnv
	importer *LocalImporter
	deployer *LocalDeployer
	history  *History
	topo     *Topology

	// savedMod is the modification time of our own last write.
	savedMod time.Time
}

// newApp loads path into a fresh store. A path that does not exist yet
// starts an empty model that is created on the first save.
func newApp(path string, config *Config, logger *slog.Logger) (*app, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &app{
		path:    path,
		config:  config,
		logger:  logger,
		store:   NewStore(),
		bundles: make(map[string]string),
		history: NewHistory(),
	}
	if path != "" {
		if err := a.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var save func() error
	if path != "" {
		save = a.save
	}
	a.router = NewLocalRouter(nil)
	a.env = NewLocalEnv(a.store, save, logger)
	a.importer = NewLocalImporter(a.store, a.bundles, logger)
	a.deployer = NewLocalDeployer(a.store, logger)
	a.topo = NewTopology(TopologyOptions{
		Store:    a.store,
		Env:      a.env,
		Router:   a.router,
		Importer: a.importer,
		Deployer: a.deployer,
		Config:   config,
		Logger:   logger,
	})
	a.topo.Services.OnMoved = a.history.RecordMove
	return a, nil
}

func (a *app) load() error {
	m, err := LoadModel(a.path)
	if err != nil {
		return err
	}
	m.Apply(a.store)
	clear(a.bundles)
	for k, v := range m.Bundles {
		a.bundles[k] = v
	}
	return nil
}

func (a *app) save() error {
	if err := SaveModel(a.path, SnapshotModel(a.store, a.bundles)); err != nil {
		return err
	}
	if fi, err := os.Stat(a.path); err == nil {
		a.savedMod = fi.ModTime()
	}
	return nil
}

// changedOnDisk reports whether the model file differs from our own last
// write.
func (a *app) changedOnDisk() bool {
	fi, err := os.Stat(a.path)
	if err != nil {
		return true
	}
	return !fi.ModTime().Equal(a.savedMod)
}

// reload rereads the model file after an outside change and rerenders.
func (a *app) reload() error {
	if a.path == "" {
		return nil
	}
	if err := a.load(); err != nil {
		return err
	}
	a.logger.Info("model reloaded", "path", a.path)
	a.topo.Update()
	return nil
}

// describeApplication is the text yanked for an application.
func (a *app) describeApplication(id string) string {
	app := a.store.Application(id)
	if app == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", app.Name, app.Charm)
	for _, u := range app.Units {
		fmt.Fprintf(&b, "  %s\n", app.DescribeUnit(u.ID))
	}
	for _, r := range a.store.Relations() {
		for i, ep := range r.Endpoints {
			if ep.Application != id {
				continue
			}
			other := r.Endpoints[1-i]
			fmt.Fprintf(&b, "  %s -> %s:%s [%s]\n", ep.Name, serviceDisplayName(a.store, other.Application), other.Name, r.Interface)
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
