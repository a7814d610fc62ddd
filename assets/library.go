// Package assets owns every decoded model: it runs the load pipeline
// (container, document, scene parse, coordinate transforms), registers
// the results under stable names and resolves mesh and material lookups
// during instantiation.
package assets

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/config"
	"github.com/mirmik/glb_browser/gltf"
	"github.com/mirmik/glb_browser/scene"
	"github.com/mirmik/glb_browser/status"
	"github.com/mirmik/glb_browser/utils"
	"github.com/mirmik/glb_browser/vfs"
)

type Library struct {
	mu     sync.Mutex
	models map[string]*Model
	order  []string
	meshes map[string]*scene.Mesh

	defaultMat *scene.Material
	skinnedMat *scene.Material
}

func NewLibrary() *Library {
	return &Library{
		models: make(map[string]*Model),
		meshes: make(map[string]*scene.Mesh),
		defaultMat: &scene.Material{
			Name:             "default",
			BaseColorFactor:  utils.White(),
			BaseColorTexture: -1,
		},
		skinnedMat: &scene.Material{
			Name:             "default_skinned",
			BaseColorFactor:  utils.White(),
			BaseColorTexture: -1,
		},
	}
}

// LoadFile loads one GLB from the filesystem, registered under the file
// name without its extension.
func (l *Library) LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read asset %q", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.LoadBytes(name, data)
}

// LoadBytes decodes one GLB asset and registers it. Loading a name that
// already exists replaces the previous model.
func (l *Library) LoadBytes(name string, data []byte) (*Model, error) {
	container, err := gltf.ParseGLBBytes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read container of %q", name)
	}
	doc, err := container.Document()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode document of %q", name)
	}
	scn, err := scene.Parse(doc, container.BIN)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse scene of %q", name)
	}
	scn.Name = name
	applyTransforms(scn)

	model := &Model{
		Name:  name,
		Scene: scn,
		JSON:  container.JSON,
		lib:   l,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.models[name]; !exists {
		l.order = append(l.order, name)
	}
	l.models[name] = model
	for _, mesh := range scn.Meshes {
		l.meshes[name+"/"+mesh.Name] = mesh
	}
	status.Info("Loaded %q: %d nodes, %d meshes, %d skins, %d clips",
		name, len(scn.Nodes), len(scn.Meshes), len(scn.Skins), len(scn.Clips))
	return model, nil
}

// applyTransforms runs the configured coordinate fixes in load order:
// axis conversion, exporter fix, scale normalization.
func applyTransforms(scn *scene.Scene) {
	cfg := config.Current()
	if cfg.UpAxis == config.UpAxisZ {
		scene.ConvertYUpToZUp(scn)
	}
	switch cfg.BlenderFix {
	case config.BlenderFixOn:
		scene.ApplyBlenderZUpFix(scn)
	case config.BlenderFixAuto:
		if strings.Contains(scn.Generator, "Blender") {
			scene.ApplyBlenderZUpFix(scn)
		}
	}
	scene.NormalizeScale(scn)
}

// LoadDirectory loads every *.glb in a directory. A failing asset is
// reported and skipped; the scan keeps going.
func (l *Library) LoadDirectory(dir vfs.Directory) error {
	names, err := dir.List()
	if err != nil {
		return errors.Wrapf(err, "Failed to list assets directory")
	}
	var glbs []string
	for _, n := range names {
		if strings.EqualFold(path.Ext(n), ".glb") {
			glbs = append(glbs, n)
		}
	}
	sort.Strings(glbs)

	for i, fileName := range glbs {
		status.Progress(float32(i)/float32(len(glbs)), "Loading %s", fileName)
		data, err := vfs.ReadFileBytes(dir, fileName)
		if err != nil {
			status.Error("Failed to read %s: %v", fileName, err)
			continue
		}
		name := strings.TrimSuffix(fileName, path.Ext(fileName))
		if _, err := l.LoadBytes(name, data); err != nil {
			status.Error("Failed to load %s: %v", fileName, err)
		}
	}
	status.Progress(1, "Loaded %d of %d assets", len(l.Names()), len(glbs))
	return nil
}

// MeshByKey resolves a registered mesh by its "<asset>/<mesh>" key.
func (l *Library) MeshByKey(key string) (*scene.Mesh, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meshes[key]
	return m, ok
}

// Default and Skinned make Library the material provider for
// instantiation: primitives without a material get these.
func (l *Library) Default() *scene.Material {
	return l.defaultMat
}

func (l *Library) Skinned() *scene.Material {
	return l.skinnedMat
}

func (l *Library) Model(name string) (*Model, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.models[name]
	return m, ok
}

// Names lists loaded models in load order.
func (l *Library) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func (l *Library) Models() []*Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Model, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.models[name])
	}
	return out
}
