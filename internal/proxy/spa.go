package proxy

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/telemetry"
)

// StaticHandler serves the built UI bundle. Requests that do not resolve to
// a real file fall back to index.html with a 200 so client-side routes
// survive a hard reload.
type StaticHandler struct {
	root   string
	logger *zap.Logger
}

// NewStaticHandler returns a handler rooted at the bundle directory.
func NewStaticHandler(root string, logger *zap.Logger) *StaticHandler {
	return &StaticHandler{root: root, logger: logger}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Clean with a leading slash so ".." segments cannot escape the root.
	rel := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.root, filepath.FromSlash(rel))

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		index := filepath.Join(file, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
		h.fallback(w, r)
		return
	}
	if err != nil {
		h.fallback(w, r)
		return
	}

	http.ServeFile(w, r, file)
}

func (h *StaticHandler) fallback(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(h.root, "index.html")
	if _, err := os.Stat(index); err != nil {
		h.logger.Warn("ui bundle has no index.html", zap.String("root", h.root))
		writeError(w, http.StatusNotFound, "ui bundle not found")
		return
	}
	telemetry.ObserveSPAFallback()
	http.ServeFile(w, r, index)
}
