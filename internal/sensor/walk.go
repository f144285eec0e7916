package sensor

import "codeberg.org/mutker/labdash/internal/random"

// Range is the interval a single step is drawn from.
type Range struct {
	Lo, Hi float64
}

// Bounds are exclusive: a value equal to Min or Max is outside.
type Bounds struct {
	Min, Max float64
}

// Contains reports whether v lies strictly inside the bounds.
func (b Bounds) Contains(v float64) bool {
	return v > b.Min && v < b.Max
}

// Step draws a delta from delta and adds it to previous. A result outside
// bounds is rejected and previous is returned unchanged.
func Step(src random.Source, previous float64, delta Range, bounds Bounds) float64 {
	next := previous + random.Range(src, delta.Lo, delta.Hi)
	if !bounds.Contains(next) {
		return previous
	}

	return next
}
