package contract

import "errors"

// Admission errors. Raised before any run record exists; nothing is persisted.
var (
	ErrNotAuthenticated = errors.New("caller is not authenticated")
	ErrNoActiveTenant   = errors.New("caller has no active tenant")
	ErrRateLimited      = errors.New("run admission rate limited")
)

// Registry errors.
var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidInput  = errors.New("tool input violates schema")
	ErrInvalidOutput = errors.New("tool output violates schema")
	ErrToolExecution = errors.New("tool execution failed")
)

// ErrValidation covers malformed caller requests.
var ErrValidation = errors.New("validation failed")
