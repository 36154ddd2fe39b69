// Package storage defines the persistence interfaces for work items and
// their extracted/distilled content, plus the serialization helpers shared
// by storage backends.
//
// Implementations must be thread-safe; the pipeline mutates items through
// single-key read-modify-write sequences only, so no cross-item locking is
// required of a backend.
package storage
