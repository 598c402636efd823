package vkutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestExtentTracker(t *testing.T) {
	var tracker ExtentTracker

	// Nothing observed yet.
	require.True(t, tracker.Changed())

	// A single observation still counts as changed.
	tracker.Update(core1_0.Extent2D{Width: 800, Height: 600})
	require.True(t, tracker.Changed())

	// Two equal observations settle the tracker.
	tracker.Update(core1_0.Extent2D{Width: 800, Height: 600})
	require.False(t, tracker.Changed())

	// Changed is a pure query.
	require.False(t, tracker.Changed())

	tracker.Update(core1_0.Extent2D{Width: 1280, Height: 720})
	require.True(t, tracker.Changed())

	tracker.Update(core1_0.Extent2D{Width: 1280, Height: 720})
	require.False(t, tracker.Changed())
}

func TestExtentTrackerResizeSequence(t *testing.T) {
	var tracker ExtentTracker

	extents := []core1_0.Extent2D{
		{Width: 800, Height: 600},
		{Width: 800, Height: 600},
		{Width: 1024, Height: 768},
		{Width: 1024, Height: 768},
		{Width: 1024, Height: 768},
		{Width: 640, Height: 480},
	}
	want := []bool{true, false, true, false, false, true}

	for i, extent := range extents {
		tracker.Update(extent)
		require.Equal(t, want[i], tracker.Changed(), "after update %d", i)
	}
}
