package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type UpAxis string

const (
	UpAxisZ UpAxis = "z" // convert glTF Y-up data to Z-up on load
	UpAxisY UpAxis = "y" // keep glTF axes untouched
)

type BlenderFix string

const (
	BlenderFixAuto BlenderFix = "auto" // apply when asset.generator mentions Blender
	BlenderFixOn   BlenderFix = "on"
	BlenderFixOff  BlenderFix = "off"
)

type UnmatchedPolicy string

const (
	UnmatchedWarn   UnmatchedPolicy = "warn"
	UnmatchedIgnore UnmatchedPolicy = "ignore"
)

// Settings is the process-wide configuration. Zero fields fall back to
// Defaults during Set.
type Settings struct {
	UpAxis            UpAxis          `yaml:"up_axis"`
	BlenderFix        BlenderFix      `yaml:"blender_fix"`
	UnmatchedChannels UnmatchedPolicy `yaml:"unmatched_channels"`
	Listen            string          `yaml:"listen"`
	AssetsDir         string          `yaml:"assets_dir"`
}

func Defaults() Settings {
	return Settings{
		UpAxis:            UpAxisZ,
		BlenderFix:        BlenderFixAuto,
		UnmatchedChannels: UnmatchedWarn,
		Listen:            "127.0.0.1:8000",
		AssetsDir:         "./assets",
	}
}

var current = Defaults()

func Current() Settings {
	return current
}

func Set(s Settings) error {
	defaults := Defaults()
	if s.UpAxis == "" {
		s.UpAxis = defaults.UpAxis
	}
	if s.BlenderFix == "" {
		s.BlenderFix = defaults.BlenderFix
	}
	if s.UnmatchedChannels == "" {
		s.UnmatchedChannels = defaults.UnmatchedChannels
	}
	if s.Listen == "" {
		s.Listen = defaults.Listen
	}
	if s.AssetsDir == "" {
		s.AssetsDir = defaults.AssetsDir
	}
	if err := s.validate(); err != nil {
		return err
	}
	current = s
	return nil
}

func (s *Settings) validate() error {
	switch s.UpAxis {
	case UpAxisY, UpAxisZ:
	default:
		return errors.Errorf("Bad up_axis %q (want y or z)", s.UpAxis)
	}
	switch s.BlenderFix {
	case BlenderFixAuto, BlenderFixOn, BlenderFixOff:
	default:
		return errors.Errorf("Bad blender_fix %q (want auto, on or off)", s.BlenderFix)
	}
	switch s.UnmatchedChannels {
	case UnmatchedWarn, UnmatchedIgnore:
	default:
		return errors.Errorf("Bad unmatched_channels %q (want warn or ignore)", s.UnmatchedChannels)
	}
	return nil
}

// Load reads a YAML settings file and installs it.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read config %q", path)
	}
	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(err, "Failed to parse config %q", path)
	}
	return Set(s)
}
