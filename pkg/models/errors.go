package models

import "errors"

var (
	// ErrUnrecognizedFormat reports a workflow document whose shape could not
	// be identified. Extraction returns empty sets alongside it; callers
	// treat it as a warning, not a failure.
	ErrUnrecognizedFormat = errors.New("unrecognized workflow document format")

	// ErrNotFound reports a reference that stayed unresolved after the full
	// search cascade. Surfaced per artifact, never fatal to a run.
	ErrNotFound = errors.New("not found")

	// ErrFatalInput reports a missing or unreadable structural input (the
	// workflow file or the ComfyUI root). It aborts a run before any state
	// transition.
	ErrFatalInput = errors.New("fatal input error")
)
