package anim

import (
	"math"
)

// Clip is a named set of channels sharing one timeline. Durations are in
// seconds; keyframes are in ticks (for glTF sources one tick is one
// second, but imported rigs may carry other rates).
type Clip struct {
	Name           string
	Channels       map[string]*Channel
	TicksPerSecond float32
	Loop           bool
	Duration       float32
}

func NewClip(name string, ticksPerSecond float32) *Clip {
	if ticksPerSecond <= 0 {
		ticksPerSecond = 1
	}
	return &Clip{
		Name:           name,
		Channels:       make(map[string]*Channel),
		TicksPerSecond: ticksPerSecond,
	}
}

// Channel returns the channel for a target, creating it on first use.
func (c *Clip) Channel(target string) *Channel {
	ch, ok := c.Channels[target]
	if !ok {
		ch = &Channel{Target: target}
		c.Channels[target] = ch
	}
	return ch
}

// RecomputeDuration derives the clip duration from the latest keyframe
// across every channel. Call after the channels are populated.
func (c *Clip) RecomputeDuration() {
	maxTick := float32(0)
	for _, ch := range c.Channels {
		if t := ch.MaxTick(); t > maxTick {
			maxTick = t
		}
	}
	c.Duration = maxTick / c.TicksPerSecond
}

// SampleAt evaluates every channel at a time in seconds. Looping wraps
// the time into [0,Duration); otherwise it clamps to the clip ends.
func (c *Clip) SampleAt(seconds float32, loop bool) map[string]Pose {
	t := seconds
	if c.Duration > 0 {
		if loop {
			t = float32(math.Mod(float64(t), float64(c.Duration)))
			if t < 0 {
				t += c.Duration
			}
		} else if t < 0 {
			t = 0
		} else if t > c.Duration {
			t = c.Duration
		}
	}
	ticks := t * c.TicksPerSecond

	poses := make(map[string]Pose, len(c.Channels))
	for name, ch := range c.Channels {
		poses[name] = ch.SampleAt(ticks)
	}
	return poses
}

// Sample evaluates the clip with its own loop flag.
func (c *Clip) Sample(seconds float32) map[string]Pose {
	return c.SampleAt(seconds, c.Loop)
}
