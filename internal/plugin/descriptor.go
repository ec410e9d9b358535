// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin

import "slices"

// Descriptor is the immutable metadata record for one discovered plugin.
// The registry hands out copies; mutating a returned descriptor has no
// effect on the discovered set.
type Descriptor struct {
	// Name is the unique lookup key shown to users.
	Name string

	// Version, Info and Authors are display metadata.
	Version string
	Info    string
	Authors []string

	// Entry is the sdk registration symbol resolved at load time.
	Entry string

	// Requires is an optional host version constraint from the manifest.
	Requires string

	// Path is where the manifest was found, kept for diagnostics.
	Path string
}

func (d *Descriptor) clone() *Descriptor {
	c := *d
	c.Authors = slices.Clone(d.Authors)
	return &c
}

// Fault records why a discovery candidate was omitted from the plugin set
// or why loading its code failed. Faults are kept until the next rescan so
// a broken plugin can be shown to the user instead of silently vanishing.
type Fault struct {
	// Candidate is the plugin name when known, otherwise the directory
	// entry the candidate was resolved from.
	Candidate string

	// Path is the manifest path involved, when one was resolved.
	Path string

	// Err is the underlying failure.
	Err error
}
