package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/vfs"
)

var (
	serverLibrary *assets.Library

	// serverDirectory is where uploads are persisted; nil keeps uploads
	// in memory only.
	serverDirectory vfs.Directory
)

// Router wires the viewer routes over a library. Split from StartServer
// so tests can drive the handlers without a listening socket.
func Router(lib *assets.Library, dir vfs.Directory, webPath string) *mux.Router {
	serverLibrary = lib
	serverDirectory = dir

	r := mux.NewRouter()
	r.HandleFunc("/json/assets", HandlerAjaxAssets)
	r.HandleFunc("/json/asset/{asset}", HandlerAjaxAsset)
	r.HandleFunc("/json/asset/{asset}/scene", HandlerAjaxAssetScene)
	r.HandleFunc("/json/asset/{asset}/mesh/{id}", HandlerAjaxAssetMesh)
	r.HandleFunc("/json/asset/{asset}/clip/{clip}", HandlerAjaxAssetClip)
	r.HandleFunc("/json/asset/{asset}/pose", HandlerAjaxAssetPose)
	r.HandleFunc("/dump/asset/{asset}/json", HandlerDumpAssetJson)
	r.HandleFunc("/dump/asset/{asset}/scene", HandlerDumpAssetScene)
	r.HandleFunc("/dump/asset/{asset}/mesh/{id}/positions", HandlerDumpAssetMeshPositions)
	r.HandleFunc("/upload/glb/{asset}", HandlerUploadGLB)
	r.HandleFunc("/ws/status", HandlerWsStatus)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	return r
}

func StartServer(addr string, lib *assets.Library, dir vfs.Directory, webPath string) error {
	r := Router(lib, dir, webPath)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
