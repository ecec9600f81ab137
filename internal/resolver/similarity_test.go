package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Green Leaf", "Green Leaf"))
	assert.Equal(t, 1.0, Similarity("GREEN LEAF", "green leaf"))
}

func TestSimilarityNormalizedEquivalents(t *testing.T) {
	// Names that differ only by suffix, article, or punctuation collapse to
	// the same aggressive form and score 1.0.
	assert.Equal(t, 1.0, Similarity("Green Leaf, LLC", "The Green Leaf"))
	assert.Equal(t, 1.0, Similarity("Happy Valley Dispensary", "Happy Valley Cannabis"))
}

func TestSimilarityStorefrontVariant(t *testing.T) {
	score := Similarity("Green Leaf (Main St.)", "Green Leaf Main Street")
	assert.GreaterOrEqual(t, score, DefaultFuzzyThreshold,
		"storefront spelling variants must clear the fuzzy threshold, got %.3f", score)
}

func TestSimilarityUnrelated(t *testing.T) {
	score := Similarity("Green Leaf", "Pacific Coast Distribution")
	assert.Less(t, score, DefaultFuzzyThreshold, "got %.3f", score)
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "Green Leaf (Main St.)", "Green Leaf Main Street"
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
}

func TestSimilarityEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "Green Leaf"))
	assert.Equal(t, 0.0, Similarity("Green Leaf", ""))
}
