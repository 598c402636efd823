// Package scene holds the CPU-side camera model: an orbiting view around a
// focus point and a reversed-depth perspective projection. All math runs in
// double precision; matrices are converted to shader precision only at
// upload.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	yawRate   = 180.0
	pitchRate = 90.0
	panRate   = 1.0
	zoomRate  = 0.2

	maxPitch    = 89.9
	minDistance = 1e-16
	maxDistance = 1e16
)

var worldUp = mgl64.Vec3{0, 1, 0}

// CenterView is an orbit camera: the eye circles Center at Distance, with
// Pitch and Yaw in degrees. Pitch 0 looks along the horizon; positive
// pitch raises the eye above the focus point.
type CenterView struct {
	Center   mgl64.Vec3
	Distance float64
	Pitch    float64
	Yaw      float64
}

// NewCenterView returns the default view: orbiting the origin from three
// units out, tilted down at the focus point.
func NewCenterView() CenterView {
	return CenterView{
		Distance: 3,
		Pitch:    30,
		Yaw:      45,
	}
}

// direction points from Center toward the eye.
func (v CenterView) direction() mgl64.Vec3 {
	pitch := mgl64.DegToRad(v.Pitch)
	yaw := mgl64.DegToRad(v.Yaw)

	return mgl64.Vec3{
		math.Cos(pitch) * math.Sin(yaw),
		math.Sin(pitch),
		math.Cos(pitch) * math.Cos(yaw),
	}
}

// Eye returns the camera position in world space.
func (v CenterView) Eye() mgl64.Vec3 {
	return v.Center.Add(v.direction().Mul(v.Distance))
}

// ViewMatrix returns the world-to-eye transform.
func (v CenterView) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(v.Eye(), v.Center, worldUp)
}

// Rotate orbits the eye by a normalized mouse delta. Pitch is clamped just
// short of the poles so the view never degenerates; yaw wraps.
func (v *CenterView) Rotate(dx, dy float64) {
	v.Yaw = math.Mod(v.Yaw-dx*yawRate, 360)

	v.Pitch += dy * pitchRate
	if v.Pitch > maxPitch {
		v.Pitch = maxPitch
	}
	if v.Pitch < -maxPitch {
		v.Pitch = -maxPitch
	}
}

// Zoom scales the orbit distance by steps of the scroll wheel. Each full
// step of five units halves or doubles the distance.
func (v *CenterView) Zoom(delta float64) {
	v.Distance *= math.Exp2(-delta * zoomRate)

	if v.Distance < minDistance {
		v.Distance = minDistance
	}
	if v.Distance > maxDistance {
		v.Distance = maxDistance
	}
}

// Pan shifts the focus point within the view plane by normalized mouse
// deltas. The shift scales with the orbit distance so a drag covers the
// same fraction of the screen at any zoom; dx additionally scales with the
// aspect ratio so horizontal and vertical drags feel alike.
func (v *CenterView) Pan(dx, dy, aspect float64) {
	front := v.direction().Mul(-1)
	right := front.Cross(worldUp).Normalize()
	up := right.Cross(front).Normalize()

	shift := right.Mul(dx * aspect).Add(up.Mul(dy))
	v.Center = v.Center.Add(shift.Mul(panRate * v.Distance))
}

// Mix interpolates toward target by t in [0, 1], used for input smoothing.
// Yaw takes the short way around the wrap, so 350 degrees eases to 10
// through 360 rather than back through 180.
func (v CenterView) Mix(target CenterView, t float64) CenterView {
	fromYaw, toYaw := v.Yaw, target.Yaw
	if math.Abs(fromYaw-toYaw) > 180 {
		if fromYaw < toYaw {
			fromYaw += 360
		} else {
			toYaw += 360
		}
	}

	return CenterView{
		Center:   v.Center.Add(target.Center.Sub(v.Center).Mul(t)),
		Distance: v.Distance + (target.Distance-v.Distance)*t,
		Pitch:    v.Pitch + (target.Pitch-v.Pitch)*t,
		Yaw:      math.Mod(fromYaw+(toYaw-fromYaw)*t, 360),
	}
}

// LookatView is a free camera defined by an eye position, the point it
// looks at and an up direction.
type LookatView struct {
	Position     mgl64.Vec3
	LookPosition mgl64.Vec3
	UpDirection  mgl64.Vec3
}

// Eye returns the camera position in world space.
func (v LookatView) Eye() mgl64.Vec3 {
	return v.Position
}

// ViewMatrix returns the world-to-eye transform.
func (v LookatView) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(v.Position, v.LookPosition, v.UpDirection)
}

// clipMatrix converts GL clip space to Vulkan conventions with reversed
// depth: Y flips, and [-1, 1] depth maps to [1, 0] so the near plane has
// the greatest depth value.
var clipMatrix = mgl64.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, -0.5, 0,
	0, 0, 0.5, 1,
}

// PerspectiveProjection describes a reversed-depth perspective projection.
// The zero value is not ready to use; call applyDefaults via Matrix or
// construct with NewPerspectiveProjection.
type PerspectiveProjection struct {
	// FOV is the vertical field of view in degrees. Default 50.
	FOV float64

	// Near is the near plane distance. Default 0.01.
	Near float64

	// Far is the far plane distance. Default 100. Ignored when Infinite
	// is set.
	Far float64

	// Infinite pushes the far plane to infinity. Reversed depth keeps
	// precision well distributed, so distant geometry still resolves.
	Infinite bool
}

// NewPerspectiveProjection returns the default projection.
func NewPerspectiveProjection() PerspectiveProjection {
	return PerspectiveProjection{
		FOV:  50,
		Near: 0.01,
		Far:  100,
	}
}

func (p *PerspectiveProjection) applyDefaults() {
	if p.FOV == 0 {
		p.FOV = 50
	}
	if p.Near == 0 {
		p.Near = 0.01
	}
	if p.Far == 0 {
		p.Far = 100
	}
}

// Matrix returns the projection for the given aspect ratio, mapping the
// near plane to depth 1 and the far plane (or infinity) to depth 0.
func (p PerspectiveProjection) Matrix(aspect float64) mgl64.Mat4 {
	p.applyDefaults()

	fovy := mgl64.DegToRad(p.FOV)

	if p.Infinite {
		f := 1 / math.Tan(fovy/2)
		infinite := mgl64.Mat4{
			f / aspect, 0, 0, 0,
			0, f, 0, 0,
			0, 0, -1, -1,
			0, 0, -2 * p.Near, 0,
		}
		return clipMatrix.Mul4(infinite)
	}

	return clipMatrix.Mul4(mgl64.Perspective(fovy, aspect, p.Near, p.Far))
}
