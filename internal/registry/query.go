package registry

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

// QueryKind tags the variants of the cross-project query grammar.
type QueryKind int

// Query variants. Local is a bare task id bound to the caller's current
// project; Current is the explicit "." placeholder for the same thing;
// Named targets one registered project; Wildcard fans out to every
// readable project.
const (
	QueryLocal QueryKind = iota
	QueryNamed
	QueryWildcard
	QueryCurrent
)

// Query is a parsed cross-project task query.
type Query struct {
	Kind    QueryKind
	Project string // set only for QueryNamed
	TaskID  string
}

// ParseQuery parses the query grammar:
//
//	<taskId>          implicit current project
//	.:<taskId>        explicit current project
//	*:<taskId>        every readable registered project
//	<name>:<taskId>   named project
//
// The task id must match T<digits>. Syntax violations return
// ErrInvalidQuery; whether a named project exists is a resolution
// question, not a parse question.
func ParseQuery(raw string) (Query, error) {
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 1:
		if err := types.ValidateTaskID(parts[0]); err != nil {
			return Query{}, fmt.Errorf("%w: %q", types.ErrInvalidQuery, raw)
		}
		return Query{Kind: QueryLocal, TaskID: parts[0]}, nil
	case 2:
		if err := types.ValidateTaskID(parts[1]); err != nil {
			return Query{}, fmt.Errorf("%w: %q: task id must match T<digits>", types.ErrInvalidQuery, raw)
		}
		switch parts[0] {
		case "":
			return Query{}, fmt.Errorf("%w: %q: empty project name", types.ErrInvalidQuery, raw)
		case ".":
			return Query{Kind: QueryCurrent, TaskID: parts[1]}, nil
		case "*":
			return Query{Kind: QueryWildcard, TaskID: parts[1]}, nil
		default:
			return Query{Kind: QueryNamed, Project: parts[0], TaskID: parts[1]}, nil
		}
	default:
		return Query{}, fmt.Errorf("%w: %q", types.ErrInvalidQuery, raw)
	}
}
