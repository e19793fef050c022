package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidModel = errors.New("invalid model")

// ModelFile is the on-disk form of the store.
type ModelFile struct {
	Charms       []*Charm          `yaml:"charms,omitempty" validate:"dive"`
	Applications []*Application    `yaml:"applications" validate:"dive"`
	Relations    []*Relation       `yaml:"relations,omitempty" validate:"dive"`
	Bundles      map[string]string `yaml:"bundles,omitempty"`
}

func ParseModel(data []byte) (*ModelFile, error) {
	var m ModelFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	ids := make(map[string]bool, len(m.Applications))
	for _, a := range m.Applications {
		if ids[a.ID] {
			return nil, fmt.Errorf("%w: duplicate application %q", ErrInvalidModel, a.ID)
		}
		ids[a.ID] = true
	}
	for _, r := range m.Relations {
		for _, ep := range r.Endpoints {
			if !ids[ep.Application] {
				return nil, fmt.Errorf("%w: relation %q names unknown application %q", ErrInvalidModel, r.ID, ep.Application)
			}
		}
	}
	return &m, nil
}

func LoadModel(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return ParseModel(data)
}

// Apply loads the model into the store.
func (m *ModelFile) Apply(store *Store) {
	store.Replace(m.Applications, m.Relations, m.Charms)
}

// SnapshotModel captures the committed part of the store. Ghost
// applications and pending relations stay in memory only.
func SnapshotModel(store *Store, bundles map[string]string) *ModelFile {
	m := &ModelFile{Charms: store.Charms(), Bundles: bundles}
	for _, a := range store.Applications() {
		if !a.Pending {
			m.Applications = append(m.Applications, a)
		}
	}
	for _, r := range store.Relations() {
		if !r.Pending {
			m.Relations = append(m.Relations, r)
		}
	}
	return m
}

func SaveModel(path string, m *ModelFile) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return nil
}
