package random_test

import (
	"testing"

	"codeberg.org/mutker/labdash/internal/random"
	"github.com/stretchr/testify/assert"
)

func TestSeededSourceIsReproducible(t *testing.T) {
	a := random.New(99)
	b := random.New(99)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSequenceWraps(t *testing.T) {
	seq := random.NewSequence(0.1, 0.2)

	assert.Equal(t, 0.1, seq.Float64())
	assert.Equal(t, 0.2, seq.Float64())
	assert.Equal(t, 0.1, seq.Float64())
	assert.Equal(t, 1, seq.Draws())
}

func TestRange(t *testing.T) {
	assert.InDelta(t, -0.1, random.Range(random.NewSequence(0), -0.1, 0.1), 1e-12)
	assert.InDelta(t, 0, random.Range(random.NewSequence(0.5), -0.1, 0.1), 1e-12)
	assert.InDelta(t, 5, random.Symmetric(random.NewSequence(0.75), 10), 1e-12)
}

func TestChance(t *testing.T) {
	assert.False(t, random.Chance(random.NewSequence(0.8), 0.2), "boundary is exclusive")
	assert.True(t, random.Chance(random.NewSequence(0.81), 0.2))
	assert.False(t, random.Chance(random.NewSequence(0.95), 0.05))
	assert.True(t, random.Chance(random.NewSequence(0.951), 0.05))
}

func TestIndex(t *testing.T) {
	assert.Equal(t, 1, random.Index(random.NewSequence(0), 1, 7))
	assert.Equal(t, 6, random.Index(random.NewSequence(0.999), 1, 7))
	assert.Equal(t, 3, random.Index(random.NewSequence(0.4), 1, 7))
}

func TestSeededSourceStaysInUnitInterval(t *testing.T) {
	src := random.New(1)
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
