package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves a built single-page frontend. Unknown paths outside the
// API fall back to index.html so client-side routes resolve.
type SPAHandler struct {
	Dir string
}

func (h SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	info, err := os.Stat(filepath.Join(h.Dir, filepath.FromSlash(name)))
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.Dir)).ServeHTTP(w, r)
		return
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.Dir, "index.html"))
}
