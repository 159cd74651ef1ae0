package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/comfypack/pkg/models"
)

func TestAuto_AcceptsGuessedCategories(t *testing.T) {
	auto := NewAuto(nil, false)
	guessed := []models.Category{models.CategoryCheckpoint, models.CategoryLora}

	assert.Equal(t, guessed, auto.ClassifyReference(models.ModelReference{}, guessed))
}

func TestAuto_TakesFirstCandidate(t *testing.T) {
	auto := NewAuto(nil, false)

	path, ok := auto.ChooseResolution(models.ModelReference{}, []string{"/a", "/b"})
	assert.True(t, ok)
	assert.Equal(t, "/a", path)

	_, ok = auto.ChooseResolution(models.ModelReference{}, nil)
	assert.False(t, ok)
}

func TestAuto_DefersOnlyWithKnownURL(t *testing.T) {
	auto := NewAuto(map[string]string{"big.safetensors": "https://example.com/big"}, false)

	d := auto.DecideOversized(models.ModelReference{RawName: "big.safetensors"}, "/p", 1<<31)
	assert.Equal(t, ActionDefer, d.Action)
	assert.Equal(t, "https://example.com/big", d.URL)

	d = auto.DecideOversized(models.ModelReference{RawName: "other.safetensors"}, "/p", 1<<31)
	assert.Equal(t, ActionSkip, d.Action)
}

func TestAuto_OverwriteRequiresForce(t *testing.T) {
	assert.False(t, NewAuto(nil, false).ConfirmOverwrite("/pkg"))
	assert.True(t, NewAuto(nil, true).ConfirmOverwrite("/pkg"))
}
