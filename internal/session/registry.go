// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package session tracks the ordered list of currently open plugin
// instances and broadcasts the full session map after every mutation.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/tooldeck/tooldeck/internal/event"
	"github.com/tooldeck/tooldeck/pkg/sdk"
)

// ErrOutOfRange is returned for positions outside [0, Count()). It marks a
// caller bug, not a user-facing condition.
var ErrOutOfRange = errors.New("session position out of range")

// Session is one live, user-visible plugin instance.
type Session struct {
	// ID is unique within the registry and never reused, so a stale UI
	// reference can never resolve to an unrelated session.
	ID string

	// Plugin is the name of the plugin this session was opened from.
	Plugin string

	// Label is the visible name; defaults to the plugin name.
	Label string

	// Instance is the panel handle. The registry owns its lifecycle.
	Instance sdk.Instance
}

// Removal describes one removed session for presenters that need to both
// update their list and release resources tied to the instance.
type Removal struct {
	Position int
	Instance sdk.Instance
}

// Registry owns the ordered collection of open sessions.
//
// Signals fire on the mutating goroutine while the registry mutex is held;
// subscribers must not call back into the registry.
type Registry struct {
	mu       sync.Mutex
	sessions []*Session

	changed *event.Signal[map[string]sdk.Instance]
	removed *event.Signal[Removal]
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		changed: event.NewSignal[map[string]sdk.Instance](),
		removed: event.NewSignal[Removal](),
	}
}

// Changed is the signal fired with the full identity→instance mapping
// after every mutation.
func (r *Registry) Changed() *event.Signal[map[string]sdk.Instance] {
	return r.changed
}

// Removed is the signal fired with the removed position and instance on
// every RemoveAt.
func (r *Registry) Removed() *event.Signal[Removal] {
	return r.removed
}

// Open wraps instance in a session, appends it and returns its identity.
// Repeated opens of the same plugin never collide: the identity is the
// plugin name joined with a fresh ULID.
func (r *Registry) Open(plugin string, instance sdk.Instance) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := identityFor(plugin)
	r.sessions = append(r.sessions, &Session{
		ID:       id,
		Plugin:   plugin,
		Label:    plugin,
		Instance: instance,
	})

	r.changed.Emit(r.snapshotLocked())
	return id
}

// identityFor derives a registry-unique identity for a plugin instance.
func identityFor(plugin string) string {
	return strings.ToLower(strings.ReplaceAll(plugin, " ", "-")) + "-" + newULID().String()
}

// RemoveAt removes the session at position, shifting later sessions down
// by one without disturbing their relative order. It emits the removal
// first, then the updated session map.
func (r *Registry) RemoveAt(position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position < 0 || position >= len(r.sessions) {
		return outOfRange(position, len(r.sessions))
	}

	removed := r.sessions[position]
	r.sessions = append(r.sessions[:position], r.sessions[position+1:]...)

	r.removed.Emit(Removal{Position: position, Instance: removed.Instance})
	r.changed.Emit(r.snapshotLocked())
	return nil
}

// Count reports the number of open sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ValueAt returns the instance at position.
func (r *Registry) ValueAt(position int) (sdk.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position < 0 || position >= len(r.sessions) {
		return nil, outOfRange(position, len(r.sessions))
	}
	return r.sessions[position].Instance, nil
}

// SetLabelAt renames the visible label at position without touching
// ownership or ordering, then re-broadcasts the session map.
func (r *Registry) SetLabelAt(position int, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position < 0 || position >= len(r.sessions) {
		return outOfRange(position, len(r.sessions))
	}

	r.sessions[position].Label = label
	r.changed.Emit(r.snapshotLocked())
	return nil
}

// Sessions returns copies of all open sessions, in order.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = *s
	}
	return out
}

// Close drops all sessions without emitting removal events; the owning
// process is going away with them.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = nil
}

// snapshotLocked builds the identity→instance mapping delivered with
// change events. Called with the registry lock held.
func (r *Registry) snapshotLocked() map[string]sdk.Instance {
	m := make(map[string]sdk.Instance, len(r.sessions))
	for _, s := range r.sessions {
		m[s.ID] = s.Instance
	}
	return m
}

func outOfRange(position, count int) error {
	return oops.Code("SESSION_OUT_OF_RANGE").
		With("position", position).
		With("count", count).
		Wrapf(ErrOutOfRange, "position %d outside [0, %d)", position, count)
}
