package types

import (
	"fmt"
	"strings"
)

// DepRef is a parsed dependency reference. A bare task id is local;
// a project-qualified reference names a task in another project.
type DepRef struct {
	Project string // empty for local references
	ID      string
}

// ParseDepRef parses a raw depends entry: either "T123" or "project:T123".
// Returns ErrInvalidDepRef for anything else.
func ParseDepRef(raw string) (DepRef, error) {
	switch parts := strings.Split(raw, ":"); len(parts) {
	case 1:
		if err := ValidateTaskID(parts[0]); err != nil {
			return DepRef{}, fmt.Errorf("%w: %q", ErrInvalidDepRef, raw)
		}
		return DepRef{ID: parts[0]}, nil
	case 2:
		if parts[0] == "" || ValidateTaskID(parts[1]) != nil {
			return DepRef{}, fmt.Errorf("%w: %q", ErrInvalidDepRef, raw)
		}
		return DepRef{Project: parts[0], ID: parts[1]}, nil
	default:
		return DepRef{}, fmt.Errorf("%w: %q", ErrInvalidDepRef, raw)
	}
}

// IsLocal reports whether the reference targets the owning project.
func (r DepRef) IsLocal() bool {
	return r.Project == ""
}

// String renders the reference back to its raw form.
func (r DepRef) String() string {
	if r.Project == "" {
		return r.ID
	}
	return r.Project + ":" + r.ID
}
