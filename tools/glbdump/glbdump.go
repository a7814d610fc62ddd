package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mirmik/glb_browser/anim"
	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/config"
	"github.com/mirmik/glb_browser/scene"
)

// glbdump loads one asset through the same pipeline the server uses and
// prints what came out: a summary by default, the whole scene as json
// with -scene, or one clip sampled at -t with -clip.

func main() {
	var inGlb, cfgPath, clip string
	var dumpScene bool
	var at float64
	flag.StringVar(&inGlb, "glb", "", "Path to glb file to inspect")
	flag.StringVar(&cfgPath, "cfg", "", "Path to yaml config")
	flag.BoolVar(&dumpScene, "scene", false, "Dump the parsed scene as json")
	flag.StringVar(&clip, "clip", "", "Sample this clip at -t instead of summarizing")
	flag.Float64Var(&at, "t", 0, "Clip sample time in seconds")
	flag.Parse()

	if inGlb == "" {
		flag.PrintDefaults()
		return
	}
	if cfgPath != "" {
		if err := config.Load(cfgPath); err != nil {
			log.Fatal(err)
		}
	}

	model, err := assets.NewLibrary().LoadFile(inGlb)
	if err != nil {
		log.Fatal(err)
	}
	scn := model.Scene

	switch {
	case dumpScene:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(scn); err != nil {
			log.Fatal(err)
		}
	case clip != "":
		sampleClip(scn.Clips, clip, float32(at))
	default:
		summarize(model.Name, scn)
	}
}

func summarize(name string, scn *scene.Scene) {
	fmt.Printf("%s (generator %q)\n", name, scn.Generator)
	fmt.Printf("  nodes: %d, roots: %v\n", len(scn.Nodes), scn.Roots)
	for _, m := range scn.Meshes {
		kind := "static"
		if m.Skinned() {
			kind = "skinned"
		}
		fmt.Printf("  mesh %q: %d vertices, %d triangles, %s\n",
			m.Name, len(m.Positions), len(m.Indices)/3, kind)
	}
	for i := range scn.Materials {
		mat := &scn.Materials[i]
		fmt.Printf("  material %q: %s\n", mat.Name, mat.BaseColorFactor.Hex())
	}
	for i := range scn.Skins {
		s := &scn.Skins[i]
		fmt.Printf("  skin %q: %d joints\n", s.Name, len(s.Joints))
	}
	for _, c := range scn.Clips {
		fmt.Printf("  clip %q: %.3fs, %d channels\n", c.Name, c.Duration, len(c.Channels))
	}
}

func sampleClip(clips []*anim.Clip, name string, at float32) {
	var clip *anim.Clip
	for _, c := range clips {
		if c.Name == name {
			clip = c
			break
		}
	}
	if clip == nil {
		names := make([]string, 0, len(clips))
		for _, c := range clips {
			names = append(names, c.Name)
		}
		log.Fatalf("No clip %q, asset has %v", name, names)
	}

	fmt.Printf("%s @ %.3fs of %.3fs\n", clip.Name, at, clip.Duration)
	for target, pose := range clip.SampleAt(at, clip.Loop) {
		fmt.Printf("  %s:", target)
		if pose.Translation != nil {
			fmt.Printf(" t=%v", *pose.Translation)
		}
		if pose.Rotation != nil {
			fmt.Printf(" r=%v", *pose.Rotation)
		}
		if pose.Scale != nil {
			fmt.Printf(" s=%v", *pose.Scale)
		}
		fmt.Println()
	}
}
