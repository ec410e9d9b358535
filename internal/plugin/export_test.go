// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin

// Generation exposes the current scan generation to tests.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// ScanAs runs a full discovery and commit tagged with the given
// generation, standing in for a scan that started before a concurrent
// location change and finished after it.
func (r *Registry) ScanAs(gen uint64, locations []string) {
	r.scan(gen, locations)
}
