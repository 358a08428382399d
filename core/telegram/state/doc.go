// Package state holds the per-identity conversation session abstraction:
// a closed State value plus a typed draft, stored behind Get/Put so that the
// pair is always replaced together.
package state
