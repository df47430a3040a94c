package transform

import (
	"math"

	"github.com/tanema/gween/ease"
)

// slerpThreshold is the dot product above which slerp degenerates to a normalised lerp.
const slerpThreshold = 0.9995

// Lerp moves a toward b by fraction t.
func Lerp(a, b Vec3, t float32) Vec3 {
	return Vec3{
		X: ease.Linear(t, a.X, b.X-a.X, 1),
		Y: ease.Linear(t, a.Y, b.Y-a.Y, 1),
		Z: ease.Linear(t, a.Z, b.Z-a.Z, 1),
	}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// MulComponents multiplies per axis, used for scale composition.
func (v Vec3) MulComponents(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

func (q Quat) Length() float32 {
	return float32(math.Sqrt(float64(q.Dot(q))))
}

func (q Quat) Dot(o Quat) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Normalize returns q scaled to unit length; a zero quaternion becomes Identity.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l == 0 || math.IsNaN(float64(l)) {
		return Identity()
	}
	return Quat{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}

// Mul is the Hamilton product q*o: apply o, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Slerp interpolates along the shortest arc between two rotations.
// Inputs are normalised first, so the result is always unit length.
func Slerp(a, b Quat, t float32) Quat {
	a, b = a.Normalize(), b.Normalize()

	qa := [4]float64{float64(a.X), float64(a.Y), float64(a.Z), float64(a.W)}
	qb := [4]float64{float64(b.X), float64(b.Y), float64(b.Z), float64(b.W)}
	tt := float64(t)

	dot := qa[0]*qb[0] + qa[1]*qb[1] + qa[2]*qb[2] + qa[3]*qb[3]
	if dot < 0 {
		for i := range qb {
			qb[i] = -qb[i]
		}
		dot = -dot
	}

	var out [4]float64
	if dot > slerpThreshold {
		for i := range out {
			out[i] = qa[i] + tt*(qb[i]-qa[i])
		}
	} else {
		theta := math.Acos(dot)
		sinTheta := math.Sin(theta)
		wa := math.Sin((1-tt)*theta) / sinTheta
		wb := math.Sin(tt*theta) / sinTheta
		for i := range out {
			out[i] = wa*qa[i] + wb*qb[i]
		}
	}

	return Quat{X: float32(out[0]), Y: float32(out[1]), Z: float32(out[2]), W: float32(out[3])}.Normalize()
}

// Ease advances current toward target by rate on every channel target carries.
// Channels target does not carry are left as they are; channels current lacks
// are seeded from target.
func Ease(current, target Transform, rate float32) Transform {
	out := current.Clone()
	if target.Position != nil {
		if out.Position == nil {
			out.Position = Vec3Ptr(target.Position.X, target.Position.Y, target.Position.Z)
		} else {
			p := Lerp(*out.Position, *target.Position, rate)
			out.Position = &p
		}
	}
	if target.Rotation != nil {
		if out.Rotation == nil {
			r := target.Rotation.Normalize()
			out.Rotation = &r
		} else {
			r := Slerp(*out.Rotation, *target.Rotation, rate)
			out.Rotation = &r
		}
	}
	if target.Scale != nil {
		if out.Scale == nil {
			out.Scale = Vec3Ptr(target.Scale.X, target.Scale.Y, target.Scale.Z)
		} else {
			s := Lerp(*out.Scale, *target.Scale, rate)
			out.Scale = &s
		}
	}
	return out
}
