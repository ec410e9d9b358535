// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Masterminds/semver/v3"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooldeck/tooldeck/internal/plugin"
	"github.com/tooldeck/tooldeck/pkg/sdk"
)

type testPanel struct{ id int }

func (p *testPanel) Init() tea.Cmd                       { return nil }
func (p *testPanel) Update(tea.Msg) (tea.Model, tea.Cmd) { return p, nil }
func (p *testPanel) View() string                        { return "" }

var (
	panelSeq  atomic.Int64
	initCalls atomic.Int64
)

func init() {
	sdk.Register(sdk.Registration{
		Entry: "registrytest.panel",
		New:   func() sdk.Instance { return &testPanel{id: int(panelSeq.Add(1))} },
	})
	sdk.Register(sdk.Registration{
		Entry: "registrytest.counted",
		Init:  func() error { initCalls.Add(1); return nil },
		New:   func() sdk.Instance { return &testPanel{} },
	})
	sdk.Register(sdk.Registration{
		Entry: "registrytest.broken",
		Init:  func() error { return errors.New("boom") },
		New:   func() sdk.Instance { return &testPanel{} },
	})
}

// Helpers for creating fixtures with secure permissions.
func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func manifestFor(name, entry string) string {
	return fmt.Sprintf("name: %s\nversion: 1.0.0\ninfo: test plugin\nauthors:\n  - tester\nentry: %s\n", name, entry)
}

func TestRegistry_DiscoversBothManifestForms(t *testing.T) {
	dir := t.TempDir()

	// Single-file form.
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	// Package form.
	mkdirAll(t, filepath.Join(dir, "scandable"))
	writeFile(t, filepath.Join(dir, "scandable", "plugin.yaml"), manifestFor("Scandable", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir})
	assert.ElementsMatch(t, []string{"Perfect", "Scandable"}, reg.Plugins())
	assert.Empty(t, reg.Faults())
}

func TestRegistry_SetLocations_NoResidue(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirA, "OnlyInA.yaml"), manifestFor("OnlyInA", "registrytest.panel"))
	writeFile(t, filepath.Join(dirB, "OnlyInB.yaml"), manifestFor("OnlyInB", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dirA})
	require.Equal(t, []string{"OnlyInA"}, reg.Plugins())

	reg.SetLocations([]string{dirB})
	assert.Equal(t, []string{"OnlyInB"}, reg.Plugins(), "no residue from the previous location set")
}

func TestRegistry_SetLocations_EmitsEventsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	reg := plugin.NewRegistry(nil)

	var sequence []string
	reg.LocationsChanged().Subscribe(func(locs []string) {
		sequence = append(sequence, fmt.Sprintf("locations:%d", len(locs)))
	})
	reg.PluginsChanged().Subscribe(func(names []string) {
		sequence = append(sequence, fmt.Sprintf("plugins:%v", names))
	})

	reg.SetLocations([]string{dir})

	assert.Equal(t, []string{"locations:1", "plugins:[Perfect]"}, sequence)
}

func TestRegistry_SetLocations_CollapsesDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir, dir, dir + string(filepath.Separator)})
	assert.Equal(t, []string{dir}, reg.Locations())
	assert.Equal(t, []string{"Perfect"}, reg.Plugins(), "duplicate locations must not duplicate plugins")
}

func TestRegistry_NonexistentLocationContributesNothing(t *testing.T) {
	reg := plugin.NewRegistry([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Empty(t, reg.Plugins())
	assert.Empty(t, reg.Faults())
}

func TestRegistry_Describe(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir})

	first, err := reg.Describe("Perfect")
	require.NoError(t, err)
	second, err := reg.Describe("Perfect")
	require.NoError(t, err)

	assert.Equal(t, first, second, "describe is idempotent")
	assert.Equal(t, "Perfect", first.Name)
	assert.Equal(t, "1.0.0", first.Version)
	assert.Equal(t, []string{"tester"}, first.Authors)

	// Mutating a returned descriptor must not leak into the registry.
	first.Authors[0] = "mallory"
	again, err := reg.Describe("Perfect")
	require.NoError(t, err)
	assert.Equal(t, []string{"tester"}, again.Authors)
}

func TestRegistry_Describe_NotFound(t *testing.T) {
	reg := plugin.NewRegistry(nil)

	_, err := reg.Describe("Ghost")
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}

func TestRegistry_Instantiate_ReturnsDistinctInstances(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir})

	a, err := reg.Instantiate("Perfect")
	require.NoError(t, err)
	b, err := reg.Instantiate("Perfect")
	require.NoError(t, err)

	assert.NotSame(t, a, b, "every call produces a new instance")
}

func TestRegistry_Instantiate_NotFound(t *testing.T) {
	reg := plugin.NewRegistry(nil)

	_, err := reg.Instantiate("Ghost")
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}

func TestRegistry_Instantiate_LoadsModuleOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Counted.yaml"), manifestFor("Counted", "registrytest.counted"))

	reg := plugin.NewRegistry([]string{dir})

	before := initCalls.Load()
	_, err := reg.Instantiate("Counted")
	require.NoError(t, err)
	_, err = reg.Instantiate("Counted")
	require.NoError(t, err)

	assert.Equal(t, before+1, initCalls.Load(), "module init runs once per load")

	// Replacing the location set clears the module cache and forces a
	// re-load on next use.
	reg.SetLocations([]string{dir})
	_, err = reg.Instantiate("Counted")
	require.NoError(t, err)
	assert.Equal(t, before+2, initCalls.Load())
}

func TestRegistry_Instantiate_UnregisteredEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Orphan.yaml"), manifestFor("Orphan", "registrytest.unlinked"))

	reg := plugin.NewRegistry([]string{dir})

	_, err := reg.Instantiate("Orphan")
	require.ErrorIs(t, err, plugin.ErrLoadFailed)

	// The failure is terminal until the next rescan and recorded for
	// diagnostics.
	_, err = reg.Instantiate("Orphan")
	assert.ErrorIs(t, err, plugin.ErrLoadFailed)
	assert.Contains(t, reg.Faults(), "Orphan")
}

func TestRegistry_Instantiate_FailingInit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Broken.yaml"), manifestFor("Broken", "registrytest.broken"))

	reg := plugin.NewRegistry([]string{dir})

	_, err := reg.Instantiate("Broken")
	require.ErrorIs(t, err, plugin.ErrLoadFailed)

	fault, ok := reg.Faults()["Broken"]
	require.True(t, ok)
	assert.ErrorIs(t, fault.Err, plugin.ErrLoadFailed)
}

func TestRegistry_Scan_MalformedManifestRecorded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Good.yaml"), manifestFor("Good", "registrytest.panel"))
	writeFile(t, filepath.Join(dir, "bad.yaml"), "invalid: [")

	var published [][]string
	reg := plugin.NewRegistry(nil)
	reg.PluginsChanged().Subscribe(func(names []string) {
		published = append(published, names)
	})

	reg.SetLocations([]string{dir})

	require.Len(t, published, 1)
	assert.Equal(t, []string{"Good"}, published[0], "only the well-formed plugin is published")

	fault, ok := reg.Faults()["bad"]
	require.True(t, ok, "the malformed plugin's failure is retrievable")
	assert.Error(t, fault.Err)
}

func TestRegistry_Scan_PackageDirWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	mkdirAll(t, filepath.Join(dir, "notaplugin"))

	reg := plugin.NewRegistry([]string{dir})

	assert.Empty(t, reg.Plugins())
	assert.Contains(t, reg.Faults(), "notaplugin")
}

func TestRegistry_Scan_SkipsReservedNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "_draft.yaml"), manifestFor("Draft", "registrytest.panel"))
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), manifestFor("Hidden", "registrytest.panel"))
	writeFile(t, filepath.Join(dir, "Visible.yaml"), manifestFor("Visible", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir})

	assert.Equal(t, []string{"Visible"}, reg.Plugins())
	assert.Empty(t, reg.Faults(), "excluded entries are skipped, not faulted")
}

func TestRegistry_Scan_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "# not a plugin")

	reg := plugin.NewRegistry([]string{dir})

	assert.Empty(t, reg.Plugins())
	assert.Empty(t, reg.Faults())
}

func TestRegistry_Scan_NameCollisionLastWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "aaa.yaml"), manifestFor("Twin", "registrytest.panel"))
	writeFile(t, filepath.Join(dir, "bbb.yaml"), manifestFor("Twin", "registrytest.counted"))

	reg := plugin.NewRegistry([]string{dir})

	require.Equal(t, []string{"Twin"}, reg.Plugins())

	desc, err := reg.Describe("Twin")
	require.NoError(t, err)
	assert.Equal(t, "registrytest.counted", desc.Entry, "later-discovered manifest wins")
	assert.Equal(t, filepath.Join(dir, "bbb.yaml"), desc.Path)
}

func TestRegistry_Scan_RequiresConstraint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Modern.yaml"),
		manifestFor("Modern", "registrytest.panel")+"requires: '>= 2.0'\n")
	writeFile(t, filepath.Join(dir, "Humble.yaml"),
		manifestFor("Humble", "registrytest.panel")+"requires: '>= 1.0'\n")

	reg := plugin.NewRegistry([]string{dir}, plugin.WithHostVersion(semver.MustParse("1.2.0")))

	assert.Equal(t, []string{"Humble"}, reg.Plugins())
	assert.Contains(t, reg.Faults(), "Modern")
}

func TestRegistry_Scan_DiscardsStaleGeneration(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirA, "Old.yaml"), manifestFor("Old", "registrytest.panel"))
	writeFile(t, filepath.Join(dirB, "New.yaml"), manifestFor("New", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dirA})
	stale := reg.Generation()

	reg.SetLocations([]string{dirB})

	var published [][]string
	reg.PluginsChanged().Subscribe(func(names []string) {
		published = append(published, names)
	})

	// A scan that started before the location change finishes after it.
	reg.ScanAs(stale, []string{dirA})

	assert.Equal(t, []string{"New"}, reg.Plugins(), "older scan must not overwrite newer results")
	assert.Empty(t, published, "a discarded scan must not publish")
}

func TestRegistry_Close_DropsEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Perfect.yaml"), manifestFor("Perfect", "registrytest.panel"))

	reg := plugin.NewRegistry([]string{dir})
	require.NotEmpty(t, reg.Plugins())

	reg.Close()
	assert.Empty(t, reg.Plugins())

	_, err := reg.Describe("Perfect")
	assert.ErrorIs(t, err, plugin.ErrNotFound)
}
