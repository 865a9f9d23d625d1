package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web/*
var content embed.FS

// apiPrefix is never answered with the panel's index page.
const apiPrefix = "/api/"

// Handler serves the operator panel build.
//
// When dir names an existing directory the build is read from disk, so a
// rebuilt panel is picked up without restarting the service. Otherwise the
// placeholder page embedded in the binary is served.
//
// Client-side routes (paths without a file extension) fall back to
// index.html. Missing assets and anything under /api/ get a 404.
func Handler(dir string) http.Handler {
	fsys := Assets(dir)
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || name == "index.html" {
			serveIndex(w, r, files)
			return
		}

		if _, err := fs.Stat(fsys, name); err != nil {
			if path.Ext(name) != "" {
				http.NotFound(w, r)
				return
			}
			serveIndex(w, r, files)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// Assets returns the panel file system: dir when it exists, the embedded
// placeholder otherwise.
func Assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	web, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: embedded assets missing: %v", err))
	}
	return web
}

// serveIndex serves index.html uncached so a new build takes effect on the
// next page load.
func serveIndex(w http.ResponseWriter, r *http.Request, files http.Handler) {
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	files.ServeHTTP(w, r2)
}
