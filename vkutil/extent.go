package vkutil

import "github.com/vkngwrapper/core/v3/core1_0"

// ExtentTracker remembers the last two extents observed by a consumer and
// reports whether they differ. The zero value is ready to use; until two
// extents have been observed Changed reports true, so resources sized from
// the extent are (re)built on first use.
type ExtentTracker struct {
	previous    core1_0.Extent2D
	current     core1_0.Extent2D
	hasPrevious bool
	hasCurrent  bool
}

// Update records extent as the latest observation, demoting the prior
// observation to the comparison slot.
func (t *ExtentTracker) Update(extent core1_0.Extent2D) {
	t.previous, t.hasPrevious = t.current, t.hasCurrent
	t.current, t.hasCurrent = extent, true
}

// Changed reports whether the two most recent observations differ. It never
// mutates the tracker, so callers may consult it repeatedly between updates.
func (t *ExtentTracker) Changed() bool {
	if !t.hasPrevious || !t.hasCurrent {
		return true
	}
	return t.current != t.previous
}
