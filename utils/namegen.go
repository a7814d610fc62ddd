package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// NameGenerator hands out unique placeholder names for assets and
// entities that were exported without one. Seeded deterministically so
// repeated loads of the same file produce the same names.
type NameGenerator map[string]struct{}

func (ng *NameGenerator) Next() string {
	if *ng == nil {
		*ng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		if _, exists := (*ng)[name]; !exists {
			(*ng)[name] = struct{}{}
			return name
		}
	}
}
