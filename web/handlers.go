package web

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/anim"
	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/inst"
	"github.com/mirmik/glb_browser/status"
	"github.com/mirmik/glb_browser/vfs"
	"github.com/mirmik/glb_browser/webutils"
)

type materialSummary struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type assetSummary struct {
	Name      string            `json:"name"`
	Generator string            `json:"generator"`
	Nodes     int               `json:"nodes"`
	Meshes    []string          `json:"meshes"`
	Materials []materialSummary `json:"materials"`
	Textures  int               `json:"textures"`
	Skins     int               `json:"skins"`
	Clips     []string          `json:"clips"`
}

func summarize(m *assets.Model) assetSummary {
	s := assetSummary{
		Name:      m.Name,
		Generator: m.Scene.Generator,
		Nodes:     len(m.Scene.Nodes),
		Textures:  len(m.Scene.Textures),
		Skins:     len(m.Scene.Skins),
	}
	for _, mesh := range m.Scene.Meshes {
		s.Meshes = append(s.Meshes, mesh.Name)
	}
	for i := range m.Scene.Materials {
		mat := &m.Scene.Materials[i]
		s.Materials = append(s.Materials, materialSummary{
			Name:  mat.Name,
			Color: mat.BaseColorFactor.Hex(),
		})
	}
	for _, clip := range m.Scene.Clips {
		s.Clips = append(s.Clips, clip.Name)
	}
	return s
}

func findModel(w http.ResponseWriter, r *http.Request) (*assets.Model, bool) {
	name := mux.Vars(r)["asset"]
	model, ok := serverLibrary.Model(name)
	if !ok {
		webutils.WriteNotFound(w, errors.Errorf("Asset %q is not loaded", name))
		return nil, false
	}
	return model, true
}

func findMesh(w http.ResponseWriter, r *http.Request, m *assets.Model) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, errors.Errorf("Mesh id %q is not an integer", mux.Vars(r)["id"]))
		return 0, false
	}
	if id < 0 || id >= len(m.Scene.Meshes) {
		webutils.WriteNotFound(w, errors.Errorf("Asset %q has no mesh %d", m.Name, id))
		return 0, false
	}
	return id, true
}

func queryFloat(r *http.Request, key string) (float32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, errors.Errorf("Query param %s=%q is not a number", key, raw)
	}
	return float32(v), nil
}

func HandlerAjaxAssets(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, serverLibrary.Names())
}

func HandlerAjaxAsset(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	webutils.WriteJson(w, summarize(model))
}

func HandlerAjaxAssetScene(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	webutils.WriteJson(w, model.Scene)
}

func HandlerAjaxAssetMesh(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	id, ok := findMesh(w, r, model)
	if !ok {
		return
	}
	webutils.WriteJson(w, model.Scene.Meshes[id])
}

type poseSample struct {
	Translation *mgl32.Vec3 `json:"translation,omitempty"`
	Rotation    []float32   `json:"rotation,omitempty"`
	Scale       *mgl32.Vec3 `json:"scale,omitempty"`
}

type clipSample struct {
	Clip     string                `json:"clip"`
	Time     float32               `json:"time"`
	Duration float32               `json:"duration"`
	Loop     bool                  `json:"loop"`
	Targets  map[string]poseSample `json:"targets"`
}

// HandlerAjaxAssetClip samples one clip at ?t= seconds and returns the
// per-target poses without touching any live instance.
func HandlerAjaxAssetClip(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["clip"]
	var clip *anim.Clip
	for _, c := range model.Scene.Clips {
		if c.Name == name {
			clip = c
			break
		}
	}
	if clip == nil {
		webutils.WriteNotFound(w, errors.Errorf("Asset %q has no clip %q", model.Name, name))
		return
	}
	t, err := queryFloat(r, "t")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	out := clipSample{
		Clip:     clip.Name,
		Time:     t,
		Duration: clip.Duration,
		Loop:     clip.Loop,
		Targets:  make(map[string]poseSample),
	}
	for target, pose := range clip.SampleAt(t, clip.Loop) {
		sample := poseSample{Translation: pose.Translation, Scale: pose.Scale}
		if pose.Rotation != nil {
			q := *pose.Rotation
			sample.Rotation = []float32{q.V[0], q.V[1], q.V[2], q.W}
		}
		out.Targets[target] = sample
	}
	webutils.WriteJson(w, out)
}

type posePayload struct {
	Clip     string       `json:"clip"`
	Time     float32      `json:"time"`
	Bones    []string     `json:"bones"`
	Matrices []mgl32.Mat4 `json:"matrices"`
}

// HandlerAjaxAssetPose plays ?clip= on the asset's preview instance,
// advances it to ?t= seconds and returns the resulting bone palette.
func HandlerAjaxAssetPose(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	clip := r.URL.Query().Get("clip")
	if clip == "" {
		webutils.WriteError(w, errors.Errorf("Query param clip is required"))
		return
	}
	t, err := queryFloat(r, "t")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	err = model.WithPreview(func(res *inst.Result) error {
		if res.Controller == nil {
			return errors.Errorf("Asset %q has no skeleton to pose", model.Name)
		}
		res.Controller.ResetBindPose()
		if err := res.Player.Play(clip); err != nil {
			return err
		}
		res.Player.Update(t)
		res.Controller.Update()

		skel := res.Controller.Skeleton()
		out := posePayload{
			Clip:     clip,
			Time:     res.Player.Time(),
			Bones:    make([]string, skel.BoneCount()),
			Matrices: append([]mgl32.Mat4(nil), res.Skeleton.Matrices()...),
		}
		for i, bone := range skel.Bones {
			out.Bones[i] = bone.Name
		}
		webutils.WriteJson(w, out)
		return nil
	})
	if err != nil {
		webutils.WriteError(w, err)
	}
}

func HandlerDumpAssetJson(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	webutils.WriteFile(w, bytes.NewReader(model.JSON), model.Name+".json")
}

func HandlerDumpAssetScene(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	webutils.WriteJsonFile(w, model.Scene, model.Name+"_scene.json")
}

func HandlerDumpAssetMeshPositions(w http.ResponseWriter, r *http.Request) {
	model, ok := findModel(w, r)
	if !ok {
		return
	}
	id, ok := findMesh(w, r, model)
	if !ok {
		return
	}
	mesh := model.Scene.Meshes[id]
	webutils.WriteFileHeaders(w, fmt.Sprintf("%s_%s_positions.bin", model.Name, mesh.Name))
	if err := binary.Write(w, binary.LittleEndian, mesh.Positions); err != nil {
		log.Printf("[web] Failed to dump positions of %s mesh %d: %v", model.Name, id, err)
	}
}

// persistUpload writes an accepted upload into the served assets
// directory so it survives a restart and the next scan.
func persistUpload(fileName string, data []byte) error {
	f, err := vfs.DirectoryGetFile(serverDirectory, fileName)
	if err != nil {
		if err := serverDirectory.Add(vfs.NewDirectoryDriverFile(fileName)); err != nil {
			return errors.Wrapf(err, "Failed to create %q", fileName)
		}
		if f, err = vfs.DirectoryGetFile(serverDirectory, fileName); err != nil {
			return err
		}
	}
	return vfs.OpenFileAndCopy(f, bytes.NewReader(data))
}

func HandlerUploadGLB(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["asset"]
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	model, err := serverLibrary.LoadBytes(name, data)
	if err != nil {
		log.Printf("[web] Failed to load uploaded asset %q: %v", name, err)
		webutils.WriteError(w, err)
		return
	}
	if serverDirectory != nil {
		if err := persistUpload(name+".glb", data); err != nil {
			webutils.WriteError(w, err)
			return
		}
	}
	webutils.WriteJson(w, summarize(model))
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func HandlerWsStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] Failed to upgrade status websocket: %v", err)
		return
	}
	status.NewClient(conn)
}
