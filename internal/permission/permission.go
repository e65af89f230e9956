// Package permission enforces the ordered capability model gating
// cross-project operations: read < write < execute. A project whose
// stored level is at or above the requirement passes; a missing project
// and an insufficient level are distinct failures so callers can tell
// "doesn't exist" from "not allowed".
package permission

import (
	"fmt"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// Lookup resolves a project name to its registry entry. Satisfied by
// *registry.Registry.
type Lookup interface {
	Get(name string) (types.RegistryEntry, bool)
}

// Check reports whether the entry's stored permission satisfies the
// required level.
func Check(entry types.RegistryEntry, required types.Permission) bool {
	return entry.Permission.Allows(required)
}

// Require returns nil when the named project exists and its permission
// satisfies required. Returns ErrProjectNotFound when the project is
// not registered, and ErrPermissionDenied when it is registered but the
// stored level is insufficient.
func Require(reg Lookup, project string, required types.Permission) error {
	entry, ok := reg.Get(project)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrProjectNotFound, project)
	}
	if !Check(entry, required) {
		return fmt.Errorf("%w: %s requires %s, have %s",
			types.ErrPermissionDenied, project, required, entry.Permission)
	}
	return nil
}
