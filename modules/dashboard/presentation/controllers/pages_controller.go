package controllers

import (
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/syurii10/cloud-optimization-project/pkg/application"
)

const (
	IndexPage   = "index.html"
	ControlPage = "control.html"
)

// PagesController serves the dashboard HTML and every other file under the
// root directory. Its prefix route matches everything, so it is registered
// last.
type PagesController struct {
	root         string
	cacheControl string
}

func NewPagesController(root string, production bool) application.Controller {
	cacheControl := "no-cache, no-store, must-revalidate"
	if production {
		cacheControl = "public, max-age=3600"
	}
	return &PagesController{root: root, cacheControl: cacheControl}
}

func (c *PagesController) Key() string {
	return "pages"
}

func (c *PagesController) Register(r *mux.Router) {
	r.HandleFunc("/", c.page(IndexPage)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/control", c.page(ControlPage)).Methods(http.MethodGet, http.MethodHead)

	files := http.FileServer(rootFileSystem{http.Dir(c.root)})
	r.PathPrefix("/").Handler(c.withCacheControl(files)).Methods(http.MethodGet, http.MethodHead)
}

func (c *PagesController) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", c.cacheControl)
		http.ServeFile(w, r, filepath.Join(c.root, name))
	}
}

func (c *PagesController) withCacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", c.cacheControl)
		next.ServeHTTP(w, r)
	})
}

// rootFileSystem hides dotfiles and refuses to list directories that have
// no index.html.
type rootFileSystem struct {
	fs http.FileSystem
}

func (r rootFileSystem) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return nil, fs.ErrNotExist
		}
	}
	f, err := r.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		index, err := r.fs.Open(path.Join(name, IndexPage))
		if err != nil {
			_ = f.Close()
			return nil, fs.ErrNotExist
		}
		_ = index.Close()
	}
	return f, nil
}
