package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// StaticAvailable reports whether dir names an existing directory.
func StaticAvailable(dir string) bool {
	if dir == "" {
		return false
	}
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

// SPA serves files from dir and falls back to dir/index.html for any path
// that does not name a file, so client-side routes load the app.
func SPA(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err != nil {
			http.ServeFile(w, r, index)
			return
		}
		f.Close()
		files.ServeHTTP(w, r)
	})
}
