package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mirmik/glb_browser/gltf"
	"github.com/mirmik/glb_browser/scene"
)

// glbunpack splits one container into files: the document chunk, the
// binary chunk and every embedded texture, so the pieces can be diffed
// or fed to other tooling.

func writeFile(dir, name string, data []byte) {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0666); err != nil {
		log.Fatal(err)
	}
	log.Printf("%s: %d bytes", p, len(data))
}

func textureExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	return ".bin"
}

func main() {
	var inGlb, outDir string
	flag.StringVar(&inGlb, "glb", "", "Path to glb file to unpack")
	flag.StringVar(&outDir, "out", "glb_content", "Path where to unpack the container")
	flag.Parse()

	if inGlb == "" {
		flag.PrintDefaults()
		return
	}

	data, err := os.ReadFile(inGlb)
	if err != nil {
		log.Fatal(err)
	}
	container, err := gltf.ParseGLBBytes(data)
	if err != nil {
		log.Fatal(err)
	}
	name := strings.TrimSuffix(filepath.Base(inGlb), filepath.Ext(inGlb))

	if err := os.MkdirAll(outDir, 0776); err != nil {
		log.Fatal(err)
	}
	writeFile(outDir, name+".json", container.JSON)
	if len(container.BIN) > 0 {
		writeFile(outDir, name+".bin", container.BIN)
	}

	doc, err := container.Document()
	if err != nil {
		log.Fatal(err)
	}
	scn, err := scene.Parse(doc, container.BIN)
	if err != nil {
		log.Fatal(err)
	}
	for i := range scn.Textures {
		tex := &scn.Textures[i]
		if tex.Data == nil {
			continue
		}
		writeFile(outDir, fmt.Sprintf("%.3d_%s%s", i, tex.Name, textureExt(tex.MimeType)), tex.Data)
	}
}
