package entity

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirmik/glb_browser/utils"
)

// Transform is a local TRS pose.
type Transform struct {
	Translation mgl32.Vec3 `json:"translation"`
	Rotation    mgl32.Quat `json:"rotation"`
	Scale       mgl32.Vec3 `json:"scale"`
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) Matrix() mgl32.Mat4 {
	return utils.TRSToMat4(t.Translation, t.Rotation, t.Scale)
}
