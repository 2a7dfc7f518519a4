package handlers

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"
)

const indexPage = "index.html"

// SPAHandler serves the browser app. Paths that name a file in the build are
// served as-is; every other non-API path gets index.html so client-side
// routes survive a reload.
type SPAHandler struct {
	files  fs.FS
	logger *zap.Logger
}

// NewSPAHandler creates a handler over a built frontend rooted at files.
func NewSPAHandler(files fs.FS, logger *zap.Logger) *SPAHandler {
	return &SPAHandler{files: files, logger: logger}
}

// RegisterRoutes registers the catch-all route. More specific routes win.
func (h *SPAHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{path...}", h.Serve)
}

// Serve handles GET /{path...}
func (h *SPAHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.PathValue("path")), "/")

	if name == "api" || strings.HasPrefix(name, "api/") {
		if err := WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	if name != "" && h.isFile(name) {
		http.ServeFileFS(w, r, h.files, name)
		return
	}

	if !h.isFile(indexPage) {
		if err := WriteJSON(w, http.StatusNotFound, map[string]string{"message": "Frontend build not found."}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}
	http.ServeFileFS(w, r, h.files, indexPage)
}

func (h *SPAHandler) isFile(name string) bool {
	if h.files == nil {
		return false
	}
	info, err := fs.Stat(h.files, name)
	return err == nil && !info.IsDir()
}
