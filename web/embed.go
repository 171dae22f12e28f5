package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/index.html static/*
var content embed.FS

// IndexHTML returns the live log page
func IndexHTML() ([]byte, error) {
	return content.ReadFile("templates/index.html")
}

// GetStaticFS returns the embedded static files filesystem
func GetStaticFS() fs.FS {
	staticFS, _ := fs.Sub(content, "static")
	return staticFS
}
