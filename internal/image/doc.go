// Package image implements the image catalog: the registry of available VM
// images, its on-disk representation, and the reconciliation engine that
// merges a canonical registry into the user's local one.
//
// The registry file is human-editable. Each entry may carry per-record change
// directives that control how the next reconciliation treats it:
//
//   - delete: remove the entry once it disappears from the canonical registry
//   - update-all: take every field from the canonical registry
//   - update-<field>: take one field from the canonical registry
//   - keep-<field>: pin one field even under update-all
//   - keep-change: keep the directive set itself across reconciliations
//
// Directives are one-shot unless keep-change is present: after a merge the
// entry's directive set is replaced by the canonical one (usually empty), so
// an update-all applies once and then disarms itself. Unrecognized tokens are
// carried opaquely and never interpreted, so registry files written by other
// versions of the tool keep working.
//
// Reconciliation is a pure in-memory computation. File access, the verbatim
// warning header, and the advisory lock around the read-reconcile-write
// sequence live in registry.go; everything else in the package performs no
// I/O.
package image
