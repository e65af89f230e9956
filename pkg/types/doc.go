// Package types defines the task, archive, and registry entities shared by
// the Lattice storage and graph packages, together with the standard error
// values every operation reports.
package types
