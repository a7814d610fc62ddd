package utils

import (
	"github.com/go-gl/mathgl/mgl32"
)

func Vec3Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func Vec2Lerp(a, b mgl32.Vec2, t float32) mgl32.Vec2 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// IsUniform reports whether all three components of a scale vector are
// equal within epsilon.
func IsUniform(v mgl32.Vec3, epsilon float32) bool {
	return mgl32.FloatEqualThreshold(v[0], v[1], epsilon) &&
		mgl32.FloatEqualThreshold(v[1], v[2], epsilon)
}

// TRSToMat4 composes translation, rotation and scale in the usual
// T*R*S order.
func TRSToMat4(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}
