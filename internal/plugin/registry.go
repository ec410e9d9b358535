// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/tooldeck/tooldeck/internal/event"
	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// packageManifest is the manifest filename inside a package plugin
// directory.
const packageManifest = "plugin.yaml"

// DefaultExclusions is the reserved-name set skipped during scans.
var DefaultExclusions = []string{".*", "_*"}

// Registry discovers plugin manifests, loads plugin code at most once per
// scan generation, and produces panel instances on demand.
//
// All mutating operations are serialized behind one mutex. Signals fire on
// the mutating goroutine while that mutex is held; subscribers must treat
// deliveries as notifications and not call back into the registry.
type Registry struct {
	mu          sync.Mutex
	host        *semver.Version
	exclude     []glob.Glob
	locations   []string
	generation  uint64
	descriptors map[string]*Descriptor
	order       []string
	modules     map[string]*loadedModule
	faults      map[string]Fault

	locationsChanged *event.Signal[[]string]
	pluginsChanged   *event.Signal[[]string]
}

// loadedModule caches the outcome of loading one plugin's code. A failed
// load is terminal until the next full rescan.
type loadedModule struct {
	reg sdk.Registration
	err error
}

// Option configures the Registry.
type Option func(*Registry)

// WithHostVersion sets the host version matched against manifest requires
// constraints. Without it, constraints are not enforced.
func WithHostVersion(v *semver.Version) Option {
	return func(r *Registry) {
		r.host = v
	}
}

// WithExclusions replaces the reserved-name exclusion set. Invalid
// patterns are logged and dropped.
func WithExclusions(patterns ...string) Option {
	return func(r *Registry) {
		r.exclude = compileExclusions(patterns)
	}
}

func compileExclusions(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			slog.Warn("dropping invalid exclusion pattern",
				"pattern", p,
				"error", err)
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// NewRegistry creates a registry and performs the initial scan of the
// given locations.
func NewRegistry(locations []string, opts ...Option) *Registry {
	r := &Registry{
		exclude:          compileExclusions(DefaultExclusions),
		descriptors:      make(map[string]*Descriptor),
		modules:          make(map[string]*loadedModule),
		faults:           make(map[string]Fault),
		locationsChanged: event.NewSignal[[]string](),
		pluginsChanged:   event.NewSignal[[]string](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.SetLocations(locations)
	return r
}

// LocationsChanged is the signal fired with the new location set after
// every location replacement.
func (r *Registry) LocationsChanged() *event.Signal[[]string] {
	return r.locationsChanged
}

// PluginsChanged is the signal fired with the discovered names, in
// discovery order, after every completed scan.
func (r *Registry) PluginsChanged() *event.Signal[[]string] {
	return r.pluginsChanged
}

// Locations returns the current location set.
func (r *Registry) Locations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.locations)
}

// SetLocations replaces the scanned directory set. Duplicates collapse.
// All discovered descriptors, cached modules and recorded faults are
// cleared, then the new set is scanned. Paths that do not exist simply
// contribute zero plugins.
func (r *Registry) SetLocations(paths []string) {
	locs := normalizeLocations(paths)

	r.mu.Lock()
	r.locations = locs
	r.generation++
	gen := r.generation
	r.descriptors = make(map[string]*Descriptor)
	r.order = nil
	r.modules = make(map[string]*loadedModule)
	r.faults = make(map[string]Fault)
	r.locationsChanged.Emit(slices.Clone(locs))
	r.mu.Unlock()

	r.scan(gen, locs)
}

// Rescan walks the current locations again, fully replacing the
// discovered set. Cached modules and faults are cleared, so a plugin whose
// load failed gets a fresh chance.
func (r *Registry) Rescan() {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	locs := slices.Clone(r.locations)
	r.mu.Unlock()

	r.scan(gen, locs)
}

// normalizeLocations applies set semantics: cleaned paths, duplicates
// collapsed, sorted so scan order is deterministic.
func normalizeLocations(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	locs := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		locs = append(locs, p)
	}
	slices.Sort(locs)
	return locs
}

// scan walks the filesystem outside the registry lock and commits the
// results only if no newer location set replaced this generation while the
// walk was running.
func (r *Registry) scan(gen uint64, locations []string) {
	descriptors, order, faults := r.discover(locations)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		slog.Debug("discarding stale scan results",
			"generation", gen,
			"current", r.generation)
		return
	}

	r.descriptors = descriptors
	r.order = order
	r.modules = make(map[string]*loadedModule)
	r.faults = faults
	r.pluginsChanged.Emit(slices.Clone(order))
}

// discover resolves a descriptor for every candidate under the locations.
// A failure for one candidate is recorded and skipped; it never aborts the
// scan.
func (r *Registry) discover(locations []string) (map[string]*Descriptor, []string, map[string]Fault) {
	descriptors := make(map[string]*Descriptor)
	var order []string
	faults := make(map[string]Fault)

	for _, loc := range locations {
		entries, err := os.ReadDir(loc)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("skipping unreadable location",
					"location", loc,
					"error", err)
			}
			continue
		}

		for _, entry := range entries {
			candidate, manifestPath, ok := resolveCandidate(loc, entry)
			if !ok || r.excluded(candidate) {
				continue
			}

			desc, err := r.resolveDescriptor(manifestPath)
			if err != nil {
				slog.Warn("skipping plugin candidate",
					"candidate", candidate,
					"manifest", manifestPath,
					"error", err)
				faults[candidate] = Fault{Candidate: candidate, Path: manifestPath, Err: err}
				continue
			}

			if prev, collision := descriptors[desc.Name]; collision {
				// Last-discovered-wins, made visible instead of silent.
				slog.Warn("plugin name collision, later manifest wins",
					"plugin", desc.Name,
					"replaced", prev.Path,
					"winner", desc.Path)
				order = slices.DeleteFunc(order, func(n string) bool { return n == desc.Name })
			}
			descriptors[desc.Name] = desc
			order = append(order, desc.Name)
		}
	}

	return descriptors, order, faults
}

// resolveCandidate maps a directory entry to a candidate name and its
// manifest path. A regular `<name>.yaml` file is a single-file plugin; a
// directory is a package plugin whose manifest sits inside it. Other files
// are not candidates.
func resolveCandidate(location string, entry os.DirEntry) (candidate, manifestPath string, ok bool) {
	name := entry.Name()
	if entry.IsDir() {
		return name, filepath.Join(location, name, packageManifest), true
	}
	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" {
		return "", "", false
	}
	return strings.TrimSuffix(name, ext), filepath.Join(location, name), true
}

func (r *Registry) excluded(candidate string) bool {
	for _, g := range r.exclude {
		if g.Match(candidate) {
			return true
		}
	}
	return false
}

func (r *Registry) resolveDescriptor(manifestPath string) (*Descriptor, error) {
	data, err := os.ReadFile(manifestPath) //nolint:gosec // path is constructed from ReadDir entries
	if err != nil {
		// Missing manifest means the candidate is not a plugin at
		// all; anything else means a broken one. Both are recorded,
		// the distinction survives in the error.
		return nil, oops.Code("PLUGIN_MANIFEST_MISSING").
			Wrapf(err, "no manifest at %s", manifestPath)
	}

	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code("PLUGIN_MANIFEST_INVALID").
			Wrapf(err, "manifest %s violates schema", manifestPath)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, oops.Code("PLUGIN_MANIFEST_INVALID").
			Wrapf(err, "manifest %s is malformed", manifestPath)
	}

	if !m.Satisfies(r.host) {
		return nil, oops.Code("PLUGIN_VERSION_UNSATISFIED").
			With("requires", m.Requires).
			With("host", r.host.String()).
			Errorf("plugin %s requires host %q", m.Name, m.Requires)
	}

	return m.descriptor(manifestPath), nil
}

// Plugins returns the discovered plugin names in discovery order.
func (r *Registry) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Describe returns the descriptor for a discovered plugin.
func (r *Registry) Describe(name string) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return nil, oops.Code("PLUGIN_NOT_FOUND").
			With("plugin", name).
			Wrapf(ErrNotFound, "no plugin named %q in the discovered set", name)
	}
	return desc.clone(), nil
}

// Instantiate produces a new instance of a discovered plugin. The first
// call for a plugin loads its code; later calls reuse the loaded module
// and only re-invoke the factory. Instances are never cached.
func (r *Registry) Instantiate(name string) (sdk.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return nil, oops.Code("PLUGIN_NOT_FOUND").
			With("plugin", name).
			Wrapf(ErrNotFound, "no plugin named %q in the discovered set", name)
	}

	mod, loaded := r.modules[name]
	if !loaded {
		mod = r.loadModule(desc)
		r.modules[name] = mod
	}
	if mod.err != nil {
		return nil, mod.err
	}

	return mod.reg.New(), nil
}

// loadModule resolves a descriptor's entry in the sdk table and runs its
// one-time init. Called with the registry lock held.
func (r *Registry) loadModule(desc *Descriptor) *loadedModule {
	reg, ok := sdk.Lookup(desc.Entry)
	if !ok {
		err := oops.Code("PLUGIN_LOAD_FAILED").
			With("plugin", desc.Name).
			With("entry", desc.Entry).
			Wrapf(ErrLoadFailed, "entry %q is not registered in this build", desc.Entry)
		r.faults[desc.Name] = Fault{Candidate: desc.Name, Path: desc.Path, Err: err}
		return &loadedModule{err: err}
	}

	if reg.Init != nil {
		if initErr := reg.Init(); initErr != nil {
			err := oops.Code("PLUGIN_LOAD_FAILED").
				With("plugin", desc.Name).
				With("entry", desc.Entry).
				With("cause", initErr.Error()).
				Wrapf(ErrLoadFailed, "init of entry %q failed", desc.Entry)
			r.faults[desc.Name] = Fault{Candidate: desc.Name, Path: desc.Path, Err: err}
			return &loadedModule{err: err}
		}
	}

	slog.Info("loaded plugin module",
		"plugin", desc.Name,
		"entry", desc.Entry,
		"version", desc.Version)

	return &loadedModule{reg: reg}
}

// Faults returns the failures recorded since the last scan, keyed by
// candidate, for diagnostic display.
func (r *Registry) Faults() map[string]Fault {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Fault, len(r.faults))
	for k, v := range r.faults {
		out[k] = v
	}
	return out
}

// Close drops all discovered descriptors, cached modules and faults.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.descriptors = make(map[string]*Descriptor)
	r.order = nil
	r.modules = make(map[string]*loadedModule)
	r.faults = make(map[string]Fault)
}
