package anim

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/config"
)

// PoseSink receives sampled poses by target name. It reports whether the
// target exists so the player can apply the unmatched-channel policy.
type PoseSink interface {
	ApplyPose(name string, t *mgl32.Vec3, r *mgl32.Quat, s *mgl32.Vec3) bool
}

// Player advances a clock and routes the active clip's sampled poses
// into a sink. Channels naming targets the sink does not know are never
// an error; depending on configuration they are logged once or ignored.
type Player struct {
	sink   PoseSink
	clips  map[string]*Clip
	active *Clip
	time   float32

	Speed float32
	Loop  bool

	warned map[string]struct{}
}

func NewPlayer(sink PoseSink) *Player {
	return &Player{
		sink:   sink,
		clips:  make(map[string]*Clip),
		Speed:  1,
		warned: make(map[string]struct{}),
	}
}

func (p *Player) AddClip(c *Clip) {
	p.clips[c.Name] = c
}

func (p *Player) Clip(name string) *Clip {
	return p.clips[name]
}

// ClipNames lists the loaded clips in stable order.
func (p *Player) ClipNames() []string {
	names := make([]string, 0, len(p.clips))
	for name := range p.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Play activates a clip and rewinds the clock.
func (p *Player) Play(name string) error {
	c, ok := p.clips[name]
	if !ok {
		return errors.Errorf("Failed to play unknown clip %q", name)
	}
	p.active = c
	p.time = 0
	p.Loop = c.Loop
	return nil
}

func (p *Player) Stop() {
	p.active = nil
	p.time = 0
}

// Active returns the playing clip's name, or "".
func (p *Player) Active() string {
	if p.active == nil {
		return ""
	}
	return p.active.Name
}

func (p *Player) Time() float32 {
	return p.time
}

func (p *Player) Seek(seconds float32) {
	p.time = seconds
}

// Update advances the clock by dt seconds (scaled by Speed), samples the
// active clip and routes every channel into the sink.
func (p *Player) Update(dt float32) {
	if p.active == nil {
		return
	}
	p.time += dt * p.Speed
	for name, pose := range p.active.SampleAt(p.time, p.Loop) {
		if !p.sink.ApplyPose(name, pose.Translation, pose.Rotation, pose.Scale) {
			p.noteUnmatched(p.active.Name, name)
		}
	}
}

func (p *Player) noteUnmatched(clip, target string) {
	key := clip + "/" + target
	if _, ok := p.warned[key]; ok {
		return
	}
	p.warned[key] = struct{}{}
	if config.Current().UnmatchedChannels == config.UnmatchedWarn {
		log.Printf("[anim] Clip %q drives unknown target %q", clip, target)
	}
}
