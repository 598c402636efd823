package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func requireVec3InDelta(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	require.InDelta(t, want.X(), got.X(), delta)
	require.InDelta(t, want.Y(), got.Y(), delta)
	require.InDelta(t, want.Z(), got.Z(), delta)
}

func TestCenterViewDefaults(t *testing.T) {
	view := NewCenterView()

	require.Equal(t, mgl64.Vec3{}, view.Center)
	require.Equal(t, 3.0, view.Distance)
	require.Equal(t, 30.0, view.Pitch)
	require.Equal(t, 45.0, view.Yaw)
}

func TestCenterViewEye(t *testing.T) {
	t.Run("level view sits on the z axis", func(t *testing.T) {
		view := CenterView{Distance: 5}
		requireVec3InDelta(t, mgl64.Vec3{0, 0, 5}, view.Eye(), 1e-9)
	})

	t.Run("yaw orbits around the vertical axis", func(t *testing.T) {
		view := CenterView{Distance: 5, Yaw: 90}
		requireVec3InDelta(t, mgl64.Vec3{5, 0, 0}, view.Eye(), 1e-9)
	})

	t.Run("pitch raises the eye", func(t *testing.T) {
		view := CenterView{Distance: 5, Pitch: 90}
		requireVec3InDelta(t, mgl64.Vec3{0, 5, 0}, view.Eye(), 1e-9)
	})

	t.Run("orbit follows the focus point", func(t *testing.T) {
		view := CenterView{Center: mgl64.Vec3{1, 2, 3}, Distance: 2}
		requireVec3InDelta(t, mgl64.Vec3{1, 2, 5}, view.Eye(), 1e-9)
	})
}

func TestCenterViewMatrixLooksAtCenter(t *testing.T) {
	view := CenterView{
		Center:   mgl64.Vec3{1, -2, 4},
		Distance: 7,
		Pitch:    30,
		Yaw:      45,
	}

	m := view.ViewMatrix()

	// The focus point lands straight ahead at the orbit distance.
	center := m.Mul4x1(mgl64.Vec4{1, -2, 4, 1})
	require.InDelta(t, 0, center.X(), 1e-9)
	require.InDelta(t, 0, center.Y(), 1e-9)
	require.InDelta(t, -7, center.Z(), 1e-9)

	// The eye maps to the origin.
	eye := view.Eye()
	origin := m.Mul4x1(mgl64.Vec4{eye.X(), eye.Y(), eye.Z(), 1})
	require.InDelta(t, 0, origin.X(), 1e-9)
	require.InDelta(t, 0, origin.Y(), 1e-9)
	require.InDelta(t, 0, origin.Z(), 1e-9)
}

func TestLookatViewMatrix(t *testing.T) {
	view := LookatView{
		Position:     mgl64.Vec3{0, 0, 6},
		LookPosition: mgl64.Vec3{0, 0, -2},
		UpDirection:  mgl64.Vec3{0, 1, 0},
	}

	require.Equal(t, view.Position, view.Eye())

	m := view.ViewMatrix()

	// The look target lands straight ahead at its distance from the eye.
	look := m.Mul4x1(mgl64.Vec4{0, 0, -2, 1})
	require.InDelta(t, 0, look.X(), 1e-9)
	require.InDelta(t, 0, look.Y(), 1e-9)
	require.InDelta(t, -8, look.Z(), 1e-9)

	// A point above the eye maps onto the positive view-space y axis.
	above := m.Mul4x1(mgl64.Vec4{0, 3, 6, 1})
	require.InDelta(t, 0, above.X(), 1e-9)
	require.InDelta(t, 3, above.Y(), 1e-9)
	require.InDelta(t, 0, above.Z(), 1e-9)
}

func TestCenterViewRotate(t *testing.T) {
	t.Run("horizontal drag turns yaw", func(t *testing.T) {
		view := NewCenterView()
		view.Rotate(0.5, 0)
		require.InDelta(t, -45, view.Yaw, 1e-9)
	})

	t.Run("yaw wraps around full turns", func(t *testing.T) {
		view := NewCenterView()
		view.Rotate(-4, 0)
		require.InDelta(t, 45, view.Yaw, 1e-9)
	})

	t.Run("pitch clamps short of the poles", func(t *testing.T) {
		view := NewCenterView()

		view.Rotate(0, 10)
		require.Equal(t, 89.9, view.Pitch)

		view.Rotate(0, -100)
		require.Equal(t, -89.9, view.Pitch)
	})
}

func TestCenterViewZoom(t *testing.T) {
	view := NewCenterView()

	// Five scroll steps halve the distance, five back restore it.
	view.Zoom(5)
	require.InDelta(t, 1.5, view.Distance, 1e-9)
	view.Zoom(-5)
	require.InDelta(t, 3.0, view.Distance, 1e-9)

	view.Zoom(1000)
	require.Equal(t, 1e-16, view.Distance)

	view.Zoom(-10000)
	require.Equal(t, 1e16, view.Distance)
}

func TestCenterViewPan(t *testing.T) {
	t.Run("horizontal pan follows the right vector", func(t *testing.T) {
		view := CenterView{Distance: 3}
		view.Pan(1, 0, 2)
		requireVec3InDelta(t, mgl64.Vec3{6, 0, 0}, view.Center, 1e-9)
	})

	t.Run("vertical pan follows the view-plane up vector", func(t *testing.T) {
		view := CenterView{Distance: 3}
		view.Pan(0, 1, 2)
		requireVec3InDelta(t, mgl64.Vec3{0, 3, 0}, view.Center, 1e-9)
	})

	t.Run("pitched pan tilts with the view plane", func(t *testing.T) {
		view := CenterView{Distance: 3, Pitch: 30}
		view.Pan(0, 1, 1)

		c := math.Cos(mgl64.DegToRad(30.0))
		s := math.Sin(mgl64.DegToRad(30.0))
		requireVec3InDelta(t, mgl64.Vec3{0, 3 * c, -3 * s}, view.Center, 1e-9)
	})
}

func TestCenterViewMix(t *testing.T) {
	t.Run("interpolates all components", func(t *testing.T) {
		from := CenterView{Center: mgl64.Vec3{0, 0, 0}, Distance: 2, Pitch: 10, Yaw: 40}
		to := CenterView{Center: mgl64.Vec3{4, 2, 0}, Distance: 6, Pitch: 30, Yaw: 60}

		mid := from.Mix(to, 0.5)
		requireVec3InDelta(t, mgl64.Vec3{2, 1, 0}, mid.Center, 1e-9)
		require.InDelta(t, 4, mid.Distance, 1e-9)
		require.InDelta(t, 20, mid.Pitch, 1e-9)
		require.InDelta(t, 50, mid.Yaw, 1e-9)
	})

	t.Run("yaw takes the short way across the wrap", func(t *testing.T) {
		from := CenterView{Yaw: 350}
		to := CenterView{Yaw: 10}

		quarter := from.Mix(to, 0.25)
		require.InDelta(t, 355, quarter.Yaw, 1e-9)

		half := from.Mix(to, 0.5)
		require.InDelta(t, 0, math.Mod(half.Yaw, 360), 1e-9)

		// And symmetrically from the other side.
		back := to.Mix(from, 0.25)
		require.InDelta(t, 5, back.Yaw, 1e-9)
	})
}

func ndcDepth(m mgl64.Mat4, distance float64) float64 {
	v := m.Mul4x1(mgl64.Vec4{0, 0, -distance, 1})
	return v.Z() / v.W()
}

func TestPerspectiveProjectionReverseDepth(t *testing.T) {
	proj := NewPerspectiveProjection()
	m := proj.Matrix(1)

	// Near maps to depth one, far to zero, monotonically in between.
	require.InDelta(t, 1, ndcDepth(m, proj.Near), 1e-6)
	require.InDelta(t, 0, ndcDepth(m, proj.Far), 1e-6)
	require.Greater(t, ndcDepth(m, 0.02), ndcDepth(m, 1.0))
	require.Greater(t, ndcDepth(m, 1.0), ndcDepth(m, 50.0))

	// Up in eye space renders up on screen under Vulkan's flipped Y.
	up := m.Mul4x1(mgl64.Vec4{0, 1, -10, 1})
	require.Negative(t, up.Y()/up.W())
}

func TestPerspectiveProjectionInfiniteFar(t *testing.T) {
	proj := PerspectiveProjection{Infinite: true}
	m := proj.Matrix(16.0 / 9.0)

	require.InDelta(t, 1, ndcDepth(m, 0.01), 1e-6)
	require.InDelta(t, 0, ndcDepth(m, 1e9), 1e-6)

	// Depth stays strictly positive at any finite distance.
	for _, distance := range []float64{0.1, 10, 1e6} {
		require.Greater(t, ndcDepth(m, distance), 0.0)
	}
	require.Greater(t, ndcDepth(m, 0.1), ndcDepth(m, 10.0))
}
