package daemon

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

var outputContentTypes = map[string]string{
	".mp4": "video/mp4",
	".mp3": "audio/mpeg",
}

// handleOutput serves a finished file read-only. Only plain names directly
// inside the output directory resolve.
func (s *apiServer) handleOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	path := filepath.Join(s.cfg.Paths.OutputDir, name)
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	file, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer file.Close()

	contentType, ok := outputContentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, info.ModTime(), file)
}
