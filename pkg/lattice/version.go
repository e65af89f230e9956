// Package lattice exposes module-level metadata.
package lattice

// Version is the current lattice release.
const Version = "0.1.0"
