package screen

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/go-drift/screens/pkg/cache"
	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/ui"
)

// SnapshotVersion is the format written by MarshalJSON. Restore accepts any
// snapshot with the same major version.
const SnapshotVersion = "v1.1.0"

// legacySnapshotVersion is assumed for snapshots without a version field.
const legacySnapshotVersion = "v1.0.0"

// Snapshot is the persisted identity of a live instance. Widgets, caches
// and transforms are never saved; they are rebuilt from the definition.
type Snapshot struct {
	Version          string                    `json:"version,omitempty"`
	ID               string                    `json:"id"`
	Name             []string                  `json:"name"`
	Tag              string                    `json:"tag"`
	Layer            string                    `json:"layer"`
	Scope            map[string]any            `json:"scope,omitempty"`
	WidgetProperties map[string]map[string]any `json:"widget_properties,omitempty"`
	Properties       map[string]any            `json:"properties,omitempty"`
}

// Snapshot returns the persisted form of s.
func (s *Instance) Snapshot() Snapshot {
	return Snapshot{
		Version:          SnapshotVersion,
		ID:               s.id.String(),
		Name:             s.name,
		Tag:              s.tag,
		Layer:            s.layer,
		Scope:            s.scope.persistable(),
		WidgetProperties: s.widgetProperties,
		Properties:       s.properties,
	}
}

// MarshalJSON encodes the instance's snapshot.
func (s *Instance) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(s.Snapshot())
}

// Restore rebuilds an instance from data produced by MarshalJSON. The
// definition is resolved again by name and may be missing, in which case
// the instance renders nothing. Restored instances start in PhaseUpdate
// with empty caches. Numbers in the scope come back as float64.
func (d *Directory) Restore(data []byte) (*Instance, error) {
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, &errors.ScreenError{Op: "screen.Restore", Kind: errors.KindPersist, Err: err}
	}
	if err := checkSnapshotVersion(snap.Version); err != nil {
		return nil, &errors.ScreenError{Op: "screen.Restore", Kind: errors.KindPersist, Screen: strings.Join(snap.Name, " "), Err: err}
	}
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		id = uuid.New()
	}

	s := &Instance{
		id:               id,
		dir:              d,
		def:              d.registry.Resolve(snap.Name),
		name:             snap.Name,
		tag:              snap.Tag,
		layer:            snap.Layer,
		scope:            ScopeOf(snap.Scope),
		widgetProperties: snap.WidgetProperties,
		properties:       snap.Properties,
		policy:           d.profiles.Get(snap.Name),
		widgets:          make(map[string]ui.Displayable),
		transforms:       make(map[string]*ui.Transform),
		cache:            cache.Persistent{},
		oldTransfers:     true,
		phase:            PhaseUpdate,
	}
	if s.def != nil {
		if err := s.evaluate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func checkSnapshotVersion(v string) error {
	if v == "" {
		v = legacySnapshotVersion
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid snapshot version %q", v)
	}
	if semver.Major(v) != semver.Major(SnapshotVersion) {
		return fmt.Errorf("snapshot version %s is not compatible with %s", v, SnapshotVersion)
	}
	return nil
}

// Reattach places a restored instance back on its layer.
func (d *Directory) Reattach(s *Instance) {
	layer := s.layer
	if layer == "" {
		layer = d.cfg.DefaultLayer
		s.layer = layer
	}
	d.compositor.Place(layer, s.tag, s.name, s, s.zorder, false)
}
