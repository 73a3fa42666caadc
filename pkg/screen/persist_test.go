package screen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/ui"
)

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.define(t, "inventory", func(b *Builder, scope *Scope) error {
		b.Widget("title", &ui.Text{Content: scope.Lookup("owner").(string)})
		return nil
	}, WithZOrder("depth"))
	inst := f.show(t, "inventory", ShowOptions{
		Layer:            "overlay",
		Tag:              "bag",
		Kwargs:           map[string]any{"owner": "eileen", "depth": 3},
		WidgetProperties: map[string]map[string]any{"title": {"style": "bold"}},
		Properties:       map[string]any{"xalign": 0.5},
	})
	_, err := inst.Update()
	require.NoError(t, err)
	inst.Cache()["pages"] = 2

	data, err := json.Marshal(inst)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "widgets")
	assert.NotContains(t, raw["scope"], KeyScope)
	assert.NotContains(t, raw["scope"], KeyName)
	assert.NotContains(t, raw["scope"], KeyDebug)

	restored, err := f.dir.Restore(data)
	require.NoError(t, err)

	assert.Equal(t, inst.ID(), restored.ID())
	assert.Equal(t, []string{"inventory"}, restored.Name())
	assert.Equal(t, "bag", restored.Tag())
	assert.Equal(t, "overlay", restored.Layer())
	assert.Equal(t, PhaseUpdate, restored.Phase())
	assert.Equal(t, 3, restored.ZOrder())
	assert.Same(t, inst.Definition(), restored.Definition())
	assert.Nil(t, restored.Child())
	assert.Empty(t, restored.Cache())
	assert.Empty(t, restored.Widgets())
	assert.Equal(t, "eileen", restored.Scope().Lookup("owner"))

	f.dir.Reattach(restored)
	assert.Same(t, restored, f.dir.Get("bag", "overlay"))

	w, err := f.dir.GetWidget(restored, "title", "overlay")
	require.NoError(t, err)
	assert.Equal(t, "eileen", w.(*ui.Text).Content)
	assert.Equal(t, "bold", w.(*ui.Text).Style)
}

func TestRestoreDefunctScreen(t *testing.T) {
	f := newFixture(t)
	data := []byte(`{"id":"not-a-uuid","name":["retired"],"tag":"retired","layer":"screens"}`)

	restored, err := f.dir.Restore(data)
	require.NoError(t, err)
	assert.Nil(t, restored.Definition())

	widgets, err := restored.Update()
	require.NoError(t, err)
	assert.Empty(t, widgets)
	assert.IsType(t, &ui.Null{}, restored.Child())
	assert.Nil(t, restored.Hide(0, 0, "hide"))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.dir.Restore([]byte("{"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindPersist))
}

func TestRestoreSnapshotVersions(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"unversioned", ``, false},
		{"older minor", `"version":"v1.0.3",`, false},
		{"current", `"version":"` + SnapshotVersion + `",`, false},
		{"next major", `"version":"v2.0.0",`, true},
		{"not semver", `"version":"1.1",`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`{` + tt.version + `"name":["retired"],"tag":"retired","layer":"screens"}`)
			_, err := f.dir.Restore(data)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.KindPersist))
				return
			}
			require.NoError(t, err)
		})
	}
}
