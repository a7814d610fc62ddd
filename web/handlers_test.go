package web_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/config"
	"github.com/mirmik/glb_browser/gltf/gltftest"
	"github.com/mirmik/glb_browser/vfs"
	"github.com/mirmik/glb_browser/web"
)

// newTestRouter serves one preloaded asset named rig. Axes are pinned to
// raw glTF so the fixture numbers come through unconverted.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	prev := config.Current()
	if err := config.Set(config.Settings{UpAxis: config.UpAxisY}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { config.Set(prev) })

	lib := assets.NewLibrary()
	if _, err := lib.LoadBytes("rig", gltftest.Skinned("gltftest")); err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	return web.Router(lib, nil, t.TempDir())
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("bad response json %q: %v", rec.Body.String(), err)
	}
}

func TestAssetsList(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/assets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var names []string
	decode(t, rec, &names)
	if !reflect.DeepEqual(names, []string{"rig"}) {
		t.Errorf("assets = %v; expected [rig]", names)
	}
}

func TestAssetSummary(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/asset/rig")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Name      string   `json:"name"`
		Generator string   `json:"generator"`
		Nodes     int      `json:"nodes"`
		Meshes    []string `json:"meshes"`
		Materials []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"materials"`
		Skins int      `json:"skins"`
		Clips []string `json:"clips"`
	}
	decode(t, rec, &got)

	if got.Name != "rig" || got.Generator != "gltftest" {
		t.Errorf("summary names = %q/%q", got.Name, got.Generator)
	}
	if got.Nodes != 4 || got.Skins != 1 {
		t.Errorf("nodes/skins = %d/%d; expected 4/1", got.Nodes, got.Skins)
	}
	if !reflect.DeepEqual(got.Meshes, []string{"body_prim0"}) {
		t.Errorf("meshes = %v", got.Meshes)
	}
	if !reflect.DeepEqual(got.Clips, []string{"wave"}) {
		t.Errorf("clips = %v", got.Clips)
	}
	if len(got.Materials) != 1 || got.Materials[0].Name != "skin_mat" {
		t.Fatalf("materials = %+v", got.Materials)
	}
	if got.Materials[0].Color != "#ccccccff" {
		t.Errorf("material color = %q; expected #ccccccff", got.Materials[0].Color)
	}
}

func TestAssetNotFound(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/asset/ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; expected 404", rec.Code)
	}
	var e struct {
		Error string `json:"error"`
	}
	decode(t, rec, &e)
	if e.Error == "" {
		t.Error("404 body carries no error message")
	}
}

func TestAssetMesh(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/asset/rig/mesh/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var mesh struct {
		Name    string      `json:"name"`
		Indices []uint32    `json:"indices"`
		Joints  [][4]uint16 `json:"joints"`
	}
	decode(t, rec, &mesh)
	if mesh.Name != "body_prim0" {
		t.Errorf("mesh name = %q", mesh.Name)
	}
	if len(mesh.Indices) != 6 || len(mesh.Joints) != 6 {
		t.Errorf("mesh has %d indices and %d joint sets; expected 6 of each",
			len(mesh.Indices), len(mesh.Joints))
	}

	if rec := get(t, h, "/json/asset/rig/mesh/9"); rec.Code != http.StatusNotFound {
		t.Errorf("mesh 9 status = %d; expected 404", rec.Code)
	}
	if rec := get(t, h, "/json/asset/rig/mesh/x"); rec.Code != http.StatusInternalServerError {
		t.Errorf("mesh x status = %d; expected 500", rec.Code)
	}
}

func TestAssetClipSampling(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/asset/rig/clip/wave?t=0.5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Clip     string  `json:"clip"`
		Duration float32 `json:"duration"`
		Targets  map[string]struct {
			Translation []float32 `json:"translation"`
		} `json:"targets"`
	}
	decode(t, rec, &got)
	if got.Clip != "wave" || got.Duration != 1 {
		t.Errorf("clip = %q duration %v", got.Clip, got.Duration)
	}
	tip, ok := got.Targets["joint_tip"]
	if !ok {
		t.Fatalf("targets = %v; expected joint_tip", got.Targets)
	}
	if !reflect.DeepEqual(tip.Translation, []float32{0, 1.5, 0}) {
		t.Errorf("sampled translation = %v; expected [0 1.5 0]", tip.Translation)
	}

	// Past the end a non looping clip clamps to the last keyframe.
	rec = get(t, h, "/json/asset/rig/clip/wave?t=9")
	decode(t, rec, &got)
	if tr := got.Targets["joint_tip"].Translation; !reflect.DeepEqual(tr, []float32{0, 2, 0}) {
		t.Errorf("clamped translation = %v; expected [0 2 0]", tr)
	}

	if rec := get(t, h, "/json/asset/rig/clip/none"); rec.Code != http.StatusNotFound {
		t.Errorf("missing clip status = %d; expected 404", rec.Code)
	}
	if rec := get(t, h, "/json/asset/rig/clip/wave?t=abc"); rec.Code != http.StatusInternalServerError {
		t.Errorf("bad time status = %d; expected 500", rec.Code)
	}
}

func TestAssetPose(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/json/asset/rig/pose?clip=wave&t=0.5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Clip     string        `json:"clip"`
		Time     float32       `json:"time"`
		Bones    []string      `json:"bones"`
		Matrices [][16]float32 `json:"matrices"`
	}
	decode(t, rec, &got)
	if got.Clip != "wave" || got.Time != 0.5 {
		t.Errorf("clip/time = %q/%v", got.Clip, got.Time)
	}
	if !reflect.DeepEqual(got.Bones, []string{"joint_root", "joint_tip"}) {
		t.Errorf("bones = %v", got.Bones)
	}
	if len(got.Matrices) != 2 {
		t.Fatalf("matrices = %d; expected 2", len(got.Matrices))
	}
	// Half way through the wave the tip bone has moved up by 0.5; in
	// column major order that is element 13.
	tip := got.Matrices[1]
	if tip[13] != 0.5 || tip[0] != 1 || tip[12] != 0 || tip[14] != 0 {
		t.Errorf("tip bone matrix = %v; expected translate(0,0.5,0)", tip)
	}

	if rec := get(t, h, "/json/asset/rig/pose?t=0.5"); rec.Code != http.StatusInternalServerError {
		t.Errorf("missing clip param status = %d; expected 500", rec.Code)
	}
	if rec := get(t, h, "/json/asset/rig/pose?clip=none"); rec.Code != http.StatusInternalServerError {
		t.Errorf("unknown clip status = %d; expected 500", rec.Code)
	}
}

func TestDumpAssetJson(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/dump/asset/rig/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "rig.json") {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("gltftest")) {
		t.Error("dump does not contain the raw document chunk")
	}
}

func TestDumpMeshPositions(t *testing.T) {
	h := newTestRouter(t)
	rec := get(t, h, "/dump/asset/rig/mesh/0/positions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Six expanded vertices, three float32 components each.
	if n := rec.Body.Len(); n != 6*3*4 {
		t.Errorf("dump is %d bytes; expected 72", n)
	}
}

func postGLB(t *testing.T, h http.Handler, url string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", "upload.glb")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadGLB(t *testing.T) {
	h := newTestRouter(t)

	rec := postGLB(t, h, "/upload/glb/fresh", gltftest.Skinned("uploader"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Name      string `json:"name"`
		Generator string `json:"generator"`
	}
	decode(t, rec, &got)
	if got.Name != "fresh" || got.Generator != "uploader" {
		t.Errorf("uploaded summary = %+v", got)
	}

	var names []string
	decode(t, get(t, h, "/json/assets"), &names)
	if !reflect.DeepEqual(names, []string{"rig", "fresh"}) {
		t.Errorf("assets after upload = %v; expected [rig fresh]", names)
	}

	// GET is refused; uploads are POST only.
	if rec := get(t, h, "/upload/glb/other"); rec.Code != http.StatusInternalServerError {
		t.Errorf("GET upload status = %d; expected 500", rec.Code)
	}
}

func TestUploadGLBPersists(t *testing.T) {
	prev := config.Current()
	if err := config.Set(config.Settings{UpAxis: config.UpAxisY}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { config.Set(prev) })

	dir := t.TempDir()
	h := web.Router(assets.NewLibrary(), vfs.NewDirectoryDriver(dir), t.TempDir())

	payload := gltftest.Skinned("uploader")
	rec := postGLB(t, h, "/upload/glb/kept", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	saved, err := os.ReadFile(filepath.Join(dir, "kept.glb"))
	if err != nil {
		t.Fatalf("upload was not persisted: %v", err)
	}
	if !bytes.Equal(saved, payload) {
		t.Error("persisted bytes differ from the uploaded payload")
	}

	// A second upload under the same name replaces the file in place.
	if rec := postGLB(t, h, "/upload/glb/kept", payload); rec.Code != http.StatusOK {
		t.Fatalf("replacing upload status = %d: %s", rec.Code, rec.Body.String())
	}

	// A fresh directory scan sees the persisted asset.
	lib := assets.NewLibrary()
	if err := lib.LoadDirectory(vfs.NewDirectoryDriver(dir)); err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if _, ok := lib.Model("kept"); !ok {
		t.Error("rescan does not see the persisted upload")
	}
}

func TestStaticFileServing(t *testing.T) {
	webPath := t.TempDir()
	if err := os.MkdirAll(filepath.Join(webPath, "data"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(webPath, "data", "hello.txt"), []byte("viewer"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := web.Router(assets.NewLibrary(), nil, webPath)
	rec := get(t, h, "/hello.txt")
	if rec.Code != http.StatusOK || rec.Body.String() != "viewer" {
		t.Errorf("static file status %d body %q", rec.Code, rec.Body.String())
	}
}
