package main

import (
	"flag"
	"log"

	"github.com/mirmik/glb_browser/assets"
	"github.com/mirmik/glb_browser/config"
	"github.com/mirmik/glb_browser/vfs"
	"github.com/mirmik/glb_browser/web"
)

func main() {
	var addr, dir, cfgPath, webPath string
	flag.StringVar(&addr, "i", "", "Address of server (overrides config)")
	flag.StringVar(&dir, "dir", "", "Path to folder with glb assets (overrides config)")
	flag.StringVar(&cfgPath, "cfg", "", "Path to yaml config")
	flag.StringVar(&webPath, "web", "web", "Path to folder with web interface files")
	flag.Parse()

	if cfgPath != "" {
		if err := config.Load(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	cfg := config.Current()
	if addr == "" {
		addr = cfg.Listen
	}
	if dir == "" {
		dir = cfg.AssetsDir
	}

	driver := vfs.NewDirectoryDriver(dir)
	lib := assets.NewLibrary()
	if err := lib.LoadDirectory(driver); err != nil {
		log.Fatal(err)
	}

	if err := web.StartServer(addr, lib, driver, webPath); err != nil {
		log.Fatal(err)
	}
}
