package main

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMissingMetadata = errors.New("missing metadata.yaml")

// DropFile is a file dropped on the canvas.
type DropFile struct {
	Name string
	Type string
	Path string
}

func (f DropFile) isZip() bool {
	ext := strings.TrimPrefix(filepath.Ext(f.Name), ".")
	return (f.Type == "application/zip" || f.Type == "application/x-zip-compressed") && ext == "zip"
}

// DropPayload is either a set of files or the text of an in-app token.
// Screen is relative to the canvas origin.
type DropPayload struct {
	Files  []DropFile
	Text   string
	Screen Point
}

// dragToken is the envelope produced by dragging a catalog entry.
type dragToken struct {
	DataType string `json:"dataType"`
	IconSrc  string `json:"iconSrc"`
	Data     string `json:"data"`
}

type tokenEntity struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Series      []string        `json:"series"`
	Subordinate bool            `json:"subordinate"`
	Provides    []CharmRelation `json:"provides"`
	Requires    []CharmRelation `json:"requires"`
}

func (e tokenEntity) isBundle() bool {
	return strings.Contains(e.ID, "bundle")
}

// charmMetadata is the part of metadata.yaml needed to decide between an
// upgrade and a new deploy.
type charmMetadata struct {
	Name string `yaml:"name"`
}

// HandleDrop dispatches a drop by payload shape: files go to local charm
// or bundle import, anything else is parsed as a catalog token.
func (s *ServiceModule) HandleDrop(p DropPayload) {
	if len(p.Files) > 0 {
		for _, f := range p.Files {
			if f.isZip() {
				s.extractCharmMetadata(f)
				continue
			}
			s.importBundleFile(f)
		}
		return
	}
	s.deployFromCharmbrowser(p)
}

// DropFileFromPath builds a DropFile for a path, typing zips by extension.
func DropFileFromPath(p string) DropFile {
	f := DropFile{Name: filepath.Base(p), Path: p}
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		f.Type = "application/zip"
	}
	return f
}

func (s *ServiceModule) importBundleFile(f DropFile) {
	t := s.topo
	if t.importer == nil {
		return
	}
	s.logger.Info("importing bundle file", "file", f.Name)
	if err := t.importer.ImportBundleFile(f.Path); err != nil {
		s.importFailed(f, err)
		return
	}
	t.Update()
}

func (s *ServiceModule) extractCharmMetadata(f DropFile) {
	meta, err := readCharmMetadata(f.Path)
	if errors.Is(err, ErrMissingMetadata) {
		s.topo.store.AddNotification(Notification{
			Title:   "Import failed",
			Message: fmt.Sprintf("Import from %q failed. Invalid charm file, missing metadata.yaml", f.Name),
			Level:   LevelError,
		})
		s.fadeHelpIndicator()
		return
	}
	if err != nil {
		s.importFailed(f, err)
		return
	}
	s.checkForExistingServices(f, meta)
}

func (s *ServiceModule) importFailed(f DropFile, err error) {
	s.logger.Error("import failed", "file", f.Name, "err", err)
	s.topo.store.AddNotification(Notification{
		Title:   "Import failed",
		Message: fmt.Sprintf("Import from %q failed: %s", f.Name, err),
		Level:   LevelError,
	})
	s.fadeHelpIndicator()
}

func (s *ServiceModule) fadeHelpIndicator() {
	s.topo.bus.Publish(Event{Kind: EventFadeHelpIndicator, Visible: false})
}

// checkForExistingServices offers an upgrade when the charm is already
// deployed and a new deploy otherwise.
func (s *ServiceModule) checkForExistingServices(f DropFile, meta charmMetadata) {
	localType := "new"
	if len(s.topo.store.ApplicationsForCharmName(meta.Name)) > 0 {
		localType = "update"
	}
	s.logger.Info("local charm dropped", "charm", meta.Name, "type", localType)
	if s.topo.router == nil {
		return
	}
	s.topo.router.ChangeState(StateChange{Inspector: &InspectorState{LocalType: localType, LocalFile: f.Path}})
}

// readCharmMetadata finds metadata.yaml in the charm root of a zip. The
// root is the first directory holding config.yaml, metadata.yaml or
// revision.
func readCharmMetadata(zipPath string) (charmMetadata, error) {
	var meta charmMetadata
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", filepath.Base(zipPath), err)
	}
	defer r.Close()

	root := ""
	rootFound := false
	var metadata *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dir, base := path.Split(f.Name)
		if rootFound && dir != root {
			continue
		}
		switch base {
		case "config.yaml", "metadata.yaml", "revision":
			root, rootFound = dir, true
			if base == "metadata.yaml" {
				metadata = f
			}
		}
	}
	if metadata == nil {
		return meta, ErrMissingMetadata
	}

	rc, err := metadata.Open()
	if err != nil {
		return meta, fmt.Errorf("read metadata.yaml: %w", err)
	}
	defer rc.Close()
	if err := yaml.NewDecoder(rc).Decode(&meta); err != nil {
		return meta, fmt.Errorf("parse metadata.yaml: %w", err)
	}
	return meta, nil
}

// deployFromCharmbrowser handles a token drop: charms deploy at the drop
// point, bundles are fetched and imported.
func (s *ServiceModule) deployFromCharmbrowser(p DropPayload) {
	t := s.topo
	var tok dragToken
	if err := json.Unmarshal([]byte(p.Text), &tok); err != nil {
		s.logger.Debug("ignoring drop", "err", err)
		return
	}
	if tok.DataType != tokenDataType {
		return
	}
	var entity tokenEntity
	if err := json.Unmarshal([]byte(tok.Data), &entity); err != nil {
		s.logger.Warn("bad token data", "err", err)
		return
	}

	ghost := GhostAttributes{Coordinates: t.Transform().Invert(p.Screen)}
	if !entity.isBundle() {
		if t.deployer == nil {
			return
		}
		ghost.Icon = tok.IconSrc
		charm := &Charm{
			ID:          entity.ID,
			Name:        entity.Name,
			Icon:        tok.IconSrc,
			Loaded:      true,
			Series:      entity.Series,
			Subordinate: entity.Subordinate,
			Provides:    entity.Provides,
			Requires:    entity.Requires,
		}
		if _, err := t.deployer.InitiateDeploy(charm, ghost); err != nil {
			s.logger.Error("deploy failed", "charm", entity.ID, "err", err)
			t.store.AddNotification(Notification{
				Title:   "Deploy failed",
				Message: fmt.Sprintf("Deploying %s failed: %s", entity.ID, err),
				Level:   LevelError,
			})
			return
		}
		t.Update()
		return
	}

	t.store.AddNotification(Notification{
		Title:   "Processing File",
		Message: "Changeset processing started.",
		Level:   LevelInfo,
	})
	if t.importer == nil {
		return
	}
	text, err := t.importer.GetBundleYAML(strings.TrimPrefix(entity.ID, "cs:"))
	if err != nil {
		s.logger.Error("fetch bundle", "id", entity.ID, "err", err)
		t.store.AddNotification(Notification{
			Title:   "Import failed",
			Message: fmt.Sprintf("Fetching bundle %s failed: %s", entity.ID, err),
			Level:   LevelError,
		})
		s.fadeHelpIndicator()
		return
	}
	if err := t.importer.ImportBundleYAML(text); err != nil {
		s.logger.Error("import bundle", "id", entity.ID, "err", err)
		t.store.AddNotification(Notification{
			Title:   "Import failed",
			Message: fmt.Sprintf("Import of %s failed: %s", entity.ID, err),
			Level:   LevelError,
		})
		return
	}
	t.Update()
}
