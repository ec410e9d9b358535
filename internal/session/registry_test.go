// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package session_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooldeck/tooldeck/internal/session"
	"github.com/tooldeck/tooldeck/pkg/sdk"
)

type fakePanel struct{ name string }

func (p *fakePanel) Init() tea.Cmd                       { return nil }
func (p *fakePanel) Update(tea.Msg) (tea.Model, tea.Cmd) { return p, nil }
func (p *fakePanel) View() string                        { return p.name }

func open(r *session.Registry, plugin string) (string, sdk.Instance) {
	inst := &fakePanel{name: plugin}
	return r.Open(plugin, inst), inst
}

func TestRegistry_Open_AssignsDistinctIdentities(t *testing.T) {
	reg := session.NewRegistry()

	var lastMap map[string]sdk.Instance
	reg.Changed().Subscribe(func(m map[string]sdk.Instance) { lastMap = m })

	first, _ := open(reg, "Perfect")
	second, _ := open(reg, "Perfect")

	assert.NotEqual(t, first, second, "repeated opens of the same plugin never collide")
	assert.Contains(t, lastMap, first)
	assert.Contains(t, lastMap, second)
	assert.Equal(t, 2, reg.Count())
}

func TestRegistry_Open_LabelDefaultsToPluginName(t *testing.T) {
	reg := session.NewRegistry()
	open(reg, "Perfect")

	sessions := reg.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Perfect", sessions[0].Label)
	assert.Equal(t, "Perfect", sessions[0].Plugin)
}

func TestRegistry_RemoveAt_ShiftsWithoutReordering(t *testing.T) {
	reg := session.NewRegistry()
	_, instA := open(reg, "A")
	_, instB := open(reg, "B")
	_, instC := open(reg, "C")

	var removals []session.Removal
	reg.Removed().Subscribe(func(rm session.Removal) { removals = append(removals, rm) })

	require.NoError(t, reg.RemoveAt(1))

	require.Len(t, removals, 1)
	assert.Equal(t, 1, removals[0].Position)
	assert.Same(t, instB, removals[0].Instance)

	require.Equal(t, 2, reg.Count())
	got0, err := reg.ValueAt(0)
	require.NoError(t, err)
	got1, err := reg.ValueAt(1)
	require.NoError(t, err)
	assert.Same(t, instA, got0)
	assert.Same(t, instC, got1)
}

func TestRegistry_RemoveAt_OutOfRangeLeavesRegistryUnchanged(t *testing.T) {
	reg := session.NewRegistry()
	open(reg, "A")
	open(reg, "B")

	var events int
	reg.Changed().Subscribe(func(map[string]sdk.Instance) { events++ })
	reg.Removed().Subscribe(func(session.Removal) { events++ })

	assert.ErrorIs(t, reg.RemoveAt(5), session.ErrOutOfRange)
	assert.ErrorIs(t, reg.RemoveAt(-1), session.ErrOutOfRange)
	assert.Equal(t, 2, reg.Count())
	assert.Zero(t, events, "a failed removal must not notify")
}

func TestRegistry_RemoveAt_EmitsRemovalThenChange(t *testing.T) {
	reg := session.NewRegistry()
	open(reg, "A")

	var sequence []string
	reg.Removed().Subscribe(func(session.Removal) { sequence = append(sequence, "removed") })
	reg.Changed().Subscribe(func(map[string]sdk.Instance) { sequence = append(sequence, "changed") })

	require.NoError(t, reg.RemoveAt(0))
	assert.Equal(t, []string{"removed", "changed"}, sequence)
}

func TestRegistry_ValueAt_OutOfRange(t *testing.T) {
	reg := session.NewRegistry()

	_, err := reg.ValueAt(0)
	assert.ErrorIs(t, err, session.ErrOutOfRange)
}

func TestRegistry_SetLabelAt(t *testing.T) {
	reg := session.NewRegistry()
	id, inst := open(reg, "Perfect")

	var changes int
	reg.Changed().Subscribe(func(map[string]sdk.Instance) { changes++ })

	require.NoError(t, reg.SetLabelAt(0, "My favourite numbers"))

	sessions := reg.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "My favourite numbers", sessions[0].Label)
	assert.Equal(t, id, sessions[0].ID, "relabeling preserves identity")
	got, err := reg.ValueAt(0)
	require.NoError(t, err)
	assert.Same(t, inst, got, "relabeling preserves ownership")
	assert.Equal(t, 1, changes)

	assert.ErrorIs(t, reg.SetLabelAt(7, "x"), session.ErrOutOfRange)
}

func TestRegistry_IdentitiesNeverReused(t *testing.T) {
	reg := session.NewRegistry()

	seen := make(map[string]bool)
	for range 50 {
		id, _ := open(reg, "Perfect")
		require.False(t, seen[id], "identity %s reused", id)
		seen[id] = true
		require.NoError(t, reg.RemoveAt(0))
	}
}

func TestRegistry_Close(t *testing.T) {
	reg := session.NewRegistry()
	open(reg, "A")

	reg.Close()
	assert.Zero(t, reg.Count())
}
