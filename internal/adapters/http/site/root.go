// Package site serves the embedded landing page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page and its assets to mux.
//
//	GET /          -> static/index.html
//	GET /static/*  -> embedded assets
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	root := NewRootHandler()
	mux.HandleFunc("GET /{$}", root.HandleRoot)
	mux.Handle("GET /static/", http.StripPrefix("/static", http.FileServer(FS())))
}

// RootHandler handles root path requests
type RootHandler struct {
	index []byte
}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	index, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic("landing page missing from the binary: " + err.Error())
	}
	return &RootHandler{index: index}
}

// HandleRoot handles GET / requests
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.index)
}
