package decision

import "github.com/dukex/comfypack/pkg/models"

// Auto is the non-interactive decider: it accepts automatic classification,
// takes the first resolution candidate, defers oversized artifacts when a
// download URL is known for them, and skips them otherwise.
type Auto struct {
	// DeferURLs maps a model's base name to the URL recorded in the deferred
	// manifest entry for it.
	DeferURLs map[string]string

	// Force allows replacing an existing package directory.
	Force bool
}

func NewAuto(deferURLs map[string]string, force bool) *Auto {
	return &Auto{DeferURLs: deferURLs, Force: force}
}

func (a *Auto) ClassifyReference(_ models.ModelReference, guessed []models.Category) []models.Category {
	return guessed
}

func (a *Auto) ChooseResolution(_ models.ModelReference, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	return candidates[0], true
}

func (a *Auto) DecideOversized(ref models.ModelReference, _ string, _ int64) Decision {
	if url, ok := a.DeferURLs[ref.RawName]; ok && url != "" {
		return Decision{Action: ActionDefer, URL: url}
	}

	return Decision{Action: ActionSkip}
}

func (a *Auto) ConfirmOverwrite(_ string) bool {
	return a.Force
}
