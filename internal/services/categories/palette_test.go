package categories

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestGeneratePalette(t *testing.T) {
	p := GeneratePalette(12, 42)
	assert.Len(t, p, 12)
	assert.Equal(t, p, GeneratePalette(12, 42))

	seen := map[string]bool{}
	for _, c := range p {
		assert.Regexp(t, hexColor, c)
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}

	// a longer palette extends a shorter one
	assert.Equal(t, p[:5], GeneratePalette(5, 42))
	assert.NotEqual(t, p, GeneratePalette(12, 7))
}

func TestGeneratePalette_Edges(t *testing.T) {
	assert.Empty(t, GeneratePalette(0, 1))
	assert.Empty(t, GeneratePalette(-3, 1))
	assert.Equal(t, GeneratePalette(3, -20), GeneratePalette(3, 340))
}

func TestHSLToHex(t *testing.T) {
	assert.Equal(t, "#ff0000", hslToHex(0, 1, 0.5))
	assert.Equal(t, "#00ff00", hslToHex(120, 1, 0.5))
	assert.Equal(t, "#0000ff", hslToHex(240, 1, 0.5))
	assert.Equal(t, "#808080", hslToHex(0, 0, 0.5))
}
