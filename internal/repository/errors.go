// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the auth
// gateway to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers translate
// it into a domain outcome (unknown tenant, invalid session token).
var ErrNotFound = errors.New("not found")

// ErrCounterUnavailable is returned by the counter store when no Redis
// client is configured or the server cannot be reached.
var ErrCounterUnavailable = errors.New("counter store unavailable")
