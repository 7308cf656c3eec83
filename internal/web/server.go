// Package web serves the embedded chat page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// RegisterRoutes mounts the chat UI on mux at /chat/.
func RegisterRoutes(mux *http.ServeMux) {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// embed contents are fixed at compile time
		panic(err)
	}

	mux.Handle("GET /chat/", http.StripPrefix("/chat/", http.FileServer(http.FS(sub))))
	mux.HandleFunc("GET /chat", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/chat/", http.StatusMovedPermanently)
	})
}
