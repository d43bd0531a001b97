// Package repository defines error types that are reused across every
// collection.  These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios without knowing which
// storage mode served the request.
package repository

import "errors"

// ErrNotFound is returned when an identifier matches neither identity
// scheme.  Handlers translate it into a 404; it never triggers creation.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert would reuse a legacy id that is
// already taken in the same namespace.
var ErrConflict = errors.New("conflict")

// ErrStoreUnavailable wraps any failure of the durable store.  The fallback
// coordinator absorbs it; callers outside this package should never see it.
var ErrStoreUnavailable = errors.New("durable store unavailable")
