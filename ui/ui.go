// Package ui holds the built browser app. Set frontend_dir to serve a
// build from disk instead while working on the frontend.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// DistFS returns the embedded build rooted at dist/.
func DistFS() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
