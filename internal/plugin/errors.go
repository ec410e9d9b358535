// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin

import "errors"

// ErrNotFound is returned when a requested plugin name is not in the
// current discovered set.
var ErrNotFound = errors.New("plugin not found")

// ErrLoadFailed is returned when a plugin's code could not be loaded.
var ErrLoadFailed = errors.New("plugin load failed")
