package assets_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/config"
	"github.com/mirmik/glb_browser/entity"
	"github.com/mirmik/glb_browser/gltf/gltftest"
	"github.com/mirmik/glb_browser/inst"
	"github.com/mirmik/glb_browser/vfs"
)

// pinConfig installs settings for one test and restores the previous
// ones afterwards. The loader reads the process-wide configuration, so
// every test here pins what it depends on.
func pinConfig(t *testing.T, s config.Settings) {
	t.Helper()
	prev := config.Current()
	if err := config.Set(s); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { config.Set(prev) })
}

func TestLoadBytesRegisters(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisY})
	lib := assets.NewLibrary()

	model, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if model.Name != "rig" || model.Scene.Name != "rig" {
		t.Errorf("model named %q / scene %q; expected rig", model.Name, model.Scene.Name)
	}
	if len(model.JSON) == 0 {
		t.Error("model lost its raw document chunk")
	}

	got, ok := lib.Model("rig")
	if !ok || got != model {
		t.Error("Model(rig) does not return the loaded model")
	}
	if _, ok := lib.Model("other"); ok {
		t.Error("Model(other) resolved a name that was never loaded")
	}
	if names := lib.Names(); !reflect.DeepEqual(names, []string{"rig"}) {
		t.Errorf("names = %v; expected [rig]", names)
	}

	if _, ok := lib.MeshByKey("rig/body_prim0"); !ok {
		t.Error("mesh was not registered under rig/body_prim0")
	}
	if _, ok := lib.MeshByKey("rig/missing"); ok {
		t.Error("MeshByKey resolved a mesh that does not exist")
	}

	if lib.Default().Name != "default" || lib.Skinned().Name != "default_skinned" {
		t.Errorf("fallback materials = %q / %q", lib.Default().Name, lib.Skinned().Name)
	}

	// Loading the same name again replaces, not duplicates.
	if _, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest")); err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if names := lib.Names(); !reflect.DeepEqual(names, []string{"rig"}) {
		t.Errorf("names after reload = %v; expected [rig]", names)
	}
	if models := lib.Models(); len(models) != 1 {
		t.Errorf("models after reload = %d; expected 1", len(models))
	}

	// Raw axes were requested, so the fixture values come through as
	// authored.
	tip := model.Scene.Nodes[3]
	if tip.Translation != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("joint_tip translation = %v; expected unconverted (0,1,0)", tip.Translation)
	}
}

func TestLoadBytesConvertsAxes(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisZ})
	lib := assets.NewLibrary()

	model, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	scn := model.Scene

	if tip := scn.Nodes[3].Translation; tip != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("joint_tip translation = %v; expected rebased (0,0,1)", tip)
	}
	ch := scn.Clips[0].Channels["joint_tip"]
	if ch == nil {
		t.Fatal("wave clip lost its joint_tip channel")
	}
	if ch.Translations[1] != (mgl32.Vec3{0, 0, 2}) {
		t.Errorf("keyframe = %v; expected rebased (0,0,2)", ch.Translations[1])
	}
	want := mgl32.Translate3D(0, 0, -1)
	if got := scn.Skins[0].InverseBind[1]; !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("tip inverse bind = %v; expected %v", got, want)
	}
}

func TestLoadBytesRejectsGarbage(t *testing.T) {
	lib := assets.NewLibrary()
	if _, err := lib.LoadBytes("bad", []byte("not a container")); err == nil {
		t.Fatal("expected an error for a non GLB payload")
	}
	if len(lib.Names()) != 0 {
		t.Errorf("names = %v; a failed load must not register", lib.Names())
	}
}

func TestLoadFile(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisY})
	path := filepath.Join(t.TempDir(), "walker.glb")
	if err := os.WriteFile(path, gltftest.Skinned("gltftest"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lib := assets.NewLibrary()
	model, err := lib.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if model.Name != "walker" {
		t.Errorf("model name = %q; expected the file base name", model.Name)
	}
	if _, err := lib.LoadFile(filepath.Join(t.TempDir(), "absent.glb")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadDirectory(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisY})
	dir := t.TempDir()

	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b.glb", gltftest.Skinned("gltftest"))
	write("a.GLB", gltftest.Skinned("gltftest"))
	write("broken.glb", []byte("glTF is not spoken here"))
	write("notes.txt", []byte("ignored"))

	lib := assets.NewLibrary()
	if err := lib.LoadDirectory(vfs.NewDirectoryDriver(dir)); err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}

	// Extension matching is case insensitive, order follows the sorted
	// file names, and the broken asset is skipped without failing the
	// scan.
	if names := lib.Names(); !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("names = %v; expected [a b]", names)
	}
}

func TestLoadDirectoryMissing(t *testing.T) {
	lib := assets.NewLibrary()
	if err := lib.LoadDirectory(vfs.NewDirectoryDriver("/does/not/exist")); err == nil {
		t.Fatal("expected an error for an unreadable directory")
	}
}

func TestModelInstantiate(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisY})
	lib := assets.NewLibrary()
	model, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	pool := entity.NewPool()
	res, err := model.Instantiate(pool)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if res.Root.Name != "Armature" || pool.Size() != 4 {
		t.Errorf("root = %q, pool = %d; expected Armature with 4 entities", res.Root.Name, pool.Size())
	}
	if res.Phase != inst.PhaseRenderersBound {
		t.Errorf("phase = %s; expected renderers-bound", res.Phase)
	}
}

func TestModelPreviewIsShared(t *testing.T) {
	pinConfig(t, config.Settings{UpAxis: config.UpAxisY})
	lib := assets.NewLibrary()
	model, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	var first, second *inst.Result
	if err := model.WithPreview(func(r *inst.Result) error {
		first = r
		return nil
	}); err != nil {
		t.Fatalf("WithPreview: %v", err)
	}
	if err := model.WithPreview(func(r *inst.Result) error {
		second = r
		return nil
	}); err != nil {
		t.Fatalf("WithPreview: %v", err)
	}
	if first == nil || first != second {
		t.Error("preview instance is rebuilt between calls")
	}
	if first.Controller == nil || first.Player.Clip("wave") == nil {
		t.Error("preview is missing its controller or clip")
	}
}
