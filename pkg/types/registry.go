package types

import (
	"fmt"
	"time"
)

// Permission is an ordered capability level gating cross-project access.
type Permission string

// Permission levels, ordered read < write < execute. A stored level
// satisfies any requirement at or below it.
const (
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionExecute Permission = "execute"
)

// permissionLevels maps each permission to its rank in the total order.
var permissionLevels = map[Permission]int{
	PermissionRead:    1,
	PermissionWrite:   2,
	PermissionExecute: 3,
}

// ParsePermission converts a string to a Permission.
// Returns ErrInvalidPermission for unrecognized values.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if permissionLevels[p] == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}
	return p, nil
}

// Level returns the rank of the permission in the total order, or 0 for
// an unrecognized value.
func (p Permission) Level() int {
	return permissionLevels[p]
}

// Allows reports whether this permission satisfies the required level.
func (p Permission) Allows(required Permission) bool {
	return p.Level() >= required.Level()
}

// RegistryEntry describes one registered project in the nexus registry.
// TaskCount and LastSynced are a cache refreshed only by an explicit
// sync, never a source of truth.
type RegistryEntry struct {
	Name       string     `json:"name" yaml:"name"`
	Path       string     `json:"path" yaml:"path"`
	Hash       string     `json:"hash" yaml:"hash"`
	Permission Permission `json:"permission" yaml:"permission"`
	TaskCount  int        `json:"taskCount" yaml:"taskCount"`
	LastSynced time.Time  `json:"lastSynced,omitempty" yaml:"lastSynced,omitempty"`
}
