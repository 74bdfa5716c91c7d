// Package web serves the embeddable chat widget. The assets are compiled
// into the binary so the server has no runtime file dependencies.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Handler serves the widget's static assets. Mounted under /widget/.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
