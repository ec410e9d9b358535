// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package sdk provides the contract for building tooldeck plugins.
//
// A plugin is compiled into the tooldeck binary and announces itself by
// calling [Register] from an init function. The entry string it registers
// under is the symbol a manifest file binds to via its "entry" field:
//
//	package myplugin
//
//	import "github.com/tooldeck/tooldeck/pkg/sdk"
//
//	func init() {
//		sdk.Register(sdk.Registration{
//			Entry: "myplugin.v1",
//			New:   func() sdk.Instance { return newPanel() },
//		})
//	}
//
// Registration makes code available; it does not make a plugin visible.
// Visibility comes from a manifest discovered in a configured location,
// which carries the display metadata and names the entry to instantiate.
package sdk

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Instance is one live plugin panel hosted by the shell. Panels are
// bubbletea models; the core treats them as opaque handles.
type Instance = tea.Model

// Factory produces a new, independent Instance on every call.
type Factory func() Instance

// Registration is the build-time entry point for a plugin.
type Registration struct {
	// Entry is the unique symbol manifests refer to, e.g. "perfect.v1".
	Entry string

	// Init runs at most once, the first time the plugin is instantiated.
	// A nil Init means the plugin needs no one-time setup.
	Init func() error

	// New produces a fresh instance. Required.
	New Factory
}

var (
	mu      sync.RWMutex
	entries = make(map[string]Registration)
)

// Register adds a registration to the entry table. It panics on an empty
// entry, a nil factory, or a duplicate entry: all three are defects in the
// plugin itself, caught at process start because plugins register in init.
func Register(r Registration) {
	if r.Entry == "" {
		panic("sdk: registration entry cannot be empty")
	}
	if r.New == nil {
		panic(fmt.Sprintf("sdk: registration %q has no factory", r.Entry))
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := entries[r.Entry]; exists {
		panic(fmt.Sprintf("sdk: entry %q already registered", r.Entry))
	}
	entries[r.Entry] = r
}

// Lookup retrieves a registration by entry symbol.
func Lookup(entry string) (Registration, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := entries[entry]
	return r, ok
}

// Entries returns all registered entry symbols.
func Entries() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	return names
}
