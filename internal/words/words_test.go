package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsBackThroughLanguageScriptEnglishLastResort(t *testing.T) {
	c := NewCatalog()

	// Exact match exists.
	list := c.Resolve("english", "roman", "")
	assert.NotEmpty(t, list)

	// Unknown language/script falls all the way to the last resort.
	list = c.Resolve("klingon", "cyrillic", "")
	assert.Equal(t, lastResort, list)

	// Known language, unregistered script falls back to that language's roman list.
	list = c.Resolve("hindi", "braille", "")
	assert.Equal(t, c.Resolve("hindi", "roman", ""), list)
}

func TestChooseReturnsDistinctWordsExcludingUsed(t *testing.T) {
	c := NewCatalog()
	pool := c.Resolve("english", "roman", "")
	used := map[string]bool{}
	for _, w := range pool[:len(pool)-1] {
		used[w] = true
	}

	chosen := c.Choose("english", "roman", "", 1, used)
	require.Len(t, chosen, 1)
	assert.False(t, used[chosen[0]], "Choose must avoid already-used words while fresh ones remain")
}

func TestChooseRecyclesOncePoolExhausted(t *testing.T) {
	c := NewCatalog()
	pool := c.Resolve("english", "roman", "")
	used := map[string]bool{}
	for _, w := range pool {
		used[w] = true
	}

	chosen := c.Choose("english", "roman", "", 3, used)
	assert.Len(t, chosen, 3, "exhausted pool must still recycle rather than return fewer words")
}

func TestMaskPreservesSpacesAndRevealsOnlyGivenIndices(t *testing.T) {
	masked := Mask("ice cream", map[int]bool{0: true})
	assert.Equal(t, "i _ _   _ _ _ _ _", masked)
	assert.NotContains(t, masked, "c", "unrevealed letters must not leak through the mask")
}

func TestMaskEmptyWordReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", Mask("", nil))
}
