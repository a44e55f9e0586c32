// Package sentinel holds shared sentinel errors used across store implementations.
package sentinel

import dErrors "certus/pkg/domain-errors"

// ErrNotFound keeps store-level lookup misses consistent across in-memory,
// PostgreSQL, and Redis implementations. Services translate it into
// caller-facing messages; stores must not invent their own variant.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
