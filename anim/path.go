package anim

// Path identifies which part of a pose a keyframe list drives. The set
// is closed; anything else an exporter writes is rejected at parse time
// instead of being carried around as a string.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

func (p Path) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	}
	return "unknown"
}
