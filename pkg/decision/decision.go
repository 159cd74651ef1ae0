// Package decision defines the contract through which an external caller,
// interactive or scripted, steers packaging choices. The core never reads
// terminal input itself; it calls these methods synchronously and treats
// each call as a cancellable boundary.
package decision

import "github.com/dukex/comfypack/pkg/models"

// Action is the outcome for an oversized artifact.
type Action string

const (
	ActionInclude Action = "include"
	ActionDefer   Action = "defer"
	ActionSkip    Action = "skip"
)

// Decision carries the oversized-artifact outcome; URL is set when the
// action is ActionDefer.
type Decision struct {
	Action Action
	URL    string
}

// Decider supplies every externally-owned choice during package assembly.
type Decider interface {
	// ClassifyReference may override the automatic classifier's guess.
	// Returning the guessed slice unchanged accepts it.
	ClassifyReference(ref models.ModelReference, guessed []models.Category) []models.Category

	// ChooseResolution picks among candidate paths for a reference. The
	// second return is false to skip the reference.
	ChooseResolution(ref models.ModelReference, candidates []string) (string, bool)

	// DecideOversized chooses include, defer-with-URL, or skip for an
	// artifact above the size threshold.
	DecideOversized(ref models.ModelReference, path string, sizeBytes int64) Decision

	// ConfirmOverwrite is asked before an existing package directory is
	// replaced. Returning false cancels the run.
	ConfirmOverwrite(dir string) bool
}
