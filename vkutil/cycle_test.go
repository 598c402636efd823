package vkutil

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestCycleRotation(t *testing.T) {
	cycle := NewCycle("a", "b", "c")

	require.Equal(t, 3, cycle.Len())
	require.Equal(t, "a", cycle.Current())
	require.Equal(t, "b", cycle.Previous())

	cycle.Rotate()
	require.Equal(t, "b", cycle.Current())
	require.Equal(t, "c", cycle.Previous())

	cycle.Rotate()
	require.Equal(t, "c", cycle.Current())
	require.Equal(t, "a", cycle.Previous())

	// A full cycle of rotations restores the original designation.
	cycle.Rotate()
	require.Equal(t, 0, cycle.Slot())
	require.Equal(t, "a", cycle.Current())
	require.Equal(t, "b", cycle.Previous())
}

func TestCycleFullCycleIsIdentity(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5} {
		cycle, err := NewCycleFunc(size, func(slot int) (int, error) {
			return slot * 10, nil
		})
		require.NoError(t, err)

		before := cycle.Current()
		for i := 0; i < size; i++ {
			cycle.Rotate()
		}
		require.Equal(t, before, cycle.Current(), "size %d", size)
		require.Equal(t, 0, cycle.Slot(), "size %d", size)
	}
}

func TestCycleSingleSlot(t *testing.T) {
	cycle := NewCycle(42)

	require.Equal(t, 42, cycle.Current())
	require.Equal(t, 42, cycle.Previous())

	cycle.Rotate()
	require.Equal(t, 42, cycle.Current())
	require.Equal(t, 0, cycle.Slot())
}

func TestCycleElementsStayInSlots(t *testing.T) {
	cycle := NewCycle("a", "b", "c")

	for i := 0; i < 7; i++ {
		cycle.Rotate()
	}
	require.Equal(t, []string{"a", "b", "c"}, cycle.All())
}

func TestNewCycleFunc(t *testing.T) {
	t.Run("passes slot indices", func(t *testing.T) {
		var slots []int
		cycle, err := NewCycleFunc(3, func(slot int) (string, error) {
			slots = append(slots, slot)
			return string(rune('a' + slot)), nil
		})
		require.NoError(t, err)
		require.Equal(t, []int{0, 1, 2}, slots)
		require.Equal(t, []string{"a", "b", "c"}, cycle.All())
	})

	t.Run("propagates build errors", func(t *testing.T) {
		boom := errors.New("out of device memory")
		_, err := NewCycleFunc(3, func(slot int) (string, error) {
			if slot == 1 {
				return "", boom
			}
			return "ok", nil
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		_, err := NewCycleFunc(0, func(slot int) (int, error) { return 0, nil })
		require.Error(t, err)
	})
}

func TestCycleReplaceAll(t *testing.T) {
	cycle := NewCycle(1, 2, 3)
	cycle.Rotate()

	items := cycle.All()
	for i := range items {
		items[i] = items[i] * 100
	}

	require.Equal(t, 200, cycle.Current())
	require.Equal(t, 300, cycle.Previous())
}
