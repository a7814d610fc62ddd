package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirmik/glb_browser/utils"
)

// Pose is one sampled channel value. Components the channel does not
// animate stay nil so the target keeps its current value for them.
type Pose struct {
	Translation *mgl32.Vec3
	Rotation    *mgl32.Quat
	Scale       *mgl32.Vec3
}

// Channel holds every keyframe list driving one target (a bone or node
// name). The three lists run on independent timelines, in ticks.
type Channel struct {
	Target string

	TranslationTimes []float32
	Translations     []mgl32.Vec3

	RotationTimes []float32
	Rotations     []mgl32.Quat

	ScaleTimes []float32
	Scales     []mgl32.Vec3
}

// bracket locates t on a keyframe timeline. It returns the index of the
// left keyframe and the interpolation fraction towards the next one.
// Times outside the timeline clamp to the first or last keyframe, and an
// exact hit returns the stored keyframe (fraction 0).
func bracket(times []float32, t float32) (int, float32) {
	last := len(times) - 1
	if t <= times[0] {
		return 0, 0
	}
	if t >= times[last] {
		return last, 0
	}
	for i := 0; i < last; i++ {
		if t < times[i+1] {
			if t == times[i] {
				return i, 0
			}
			span := times[i+1] - times[i]
			if span <= 0 {
				return i, 0
			}
			return i, (t - times[i]) / span
		}
	}
	return last, 0
}

func sampleVec3(times []float32, values []mgl32.Vec3, t float32) mgl32.Vec3 {
	i, alpha := bracket(times, t)
	if alpha == 0 {
		return values[i]
	}
	return utils.Vec3Lerp(values[i], values[i+1], alpha)
}

func sampleQuat(times []float32, values []mgl32.Quat, t float32) mgl32.Quat {
	i, alpha := bracket(times, t)
	if alpha == 0 {
		return values[i]
	}
	return mgl32.QuatSlerp(values[i], values[i+1], alpha)
}

// SampleAt evaluates the channel at a time in ticks. Lists the channel
// does not carry produce nil components.
func (c *Channel) SampleAt(ticks float32) Pose {
	var pose Pose
	if len(c.TranslationTimes) > 0 {
		v := sampleVec3(c.TranslationTimes, c.Translations, ticks)
		pose.Translation = &v
	}
	if len(c.RotationTimes) > 0 {
		q := sampleQuat(c.RotationTimes, c.Rotations, ticks)
		pose.Rotation = &q
	}
	if len(c.ScaleTimes) > 0 {
		v := sampleVec3(c.ScaleTimes, c.Scales, ticks)
		pose.Scale = &v
	}
	return pose
}

// MaxTick is the largest keyframe time the channel carries.
func (c *Channel) MaxTick() float32 {
	max := float32(0)
	for _, times := range [][]float32{c.TranslationTimes, c.RotationTimes, c.ScaleTimes} {
		if n := len(times); n > 0 && times[n-1] > max {
			max = times[n-1]
		}
	}
	return max
}
