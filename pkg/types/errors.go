package types

import "errors"

// Validation errors: malformed input that never reached a store.
var (
	ErrInvalidID         = errors.New("invalid task ID")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrInvalidType       = errors.New("invalid task type")
	ErrInvalidPermission = errors.New("invalid permission level")
	ErrInvalidQuery      = errors.New("invalid query syntax")
	ErrInvalidDepRef     = errors.New("invalid dependency reference")
	ErrInvalidName       = errors.New("invalid project name")
)

// Not-found errors. A missing task and a missing project are reported
// separately so callers can tell which half of a qualified reference failed.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not registered")
)

// ErrPermissionDenied is returned when a project exists but the stored
// permission level is below what the operation requires. It is never
// substituted for ErrProjectNotFound.
var ErrPermissionDenied = errors.New("permission denied")

// Consistency errors: the stored data violates an invariant.
var (
	ErrChecksumMismatch = errors.New("document checksum mismatch")
	ErrCorruptDocument  = errors.New("document is corrupt")
	ErrDocumentNotFound = errors.New("document not found")
	ErrDuplicateID      = errors.New("duplicate task ID")
	ErrCycleDetected    = errors.New("relationship cycle detected")
)

// ErrNotDone is the state error for operations that require a task to
// be done, such as cascade-from on a still-open root.
var ErrNotDone = errors.New("task is not done")

// Registry errors.
var (
	ErrNameTaken      = errors.New("project name already registered")
	ErrPathRegistered = errors.New("project path already registered")
)
