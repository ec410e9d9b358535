// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newULID generates a monotonic ULID. ULIDs never repeat within a
// process, which is what keeps session identities unique for the lifetime
// of a registry even after removals.
func newULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
