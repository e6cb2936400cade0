package catalog

import (
	"embed"
	"io/fs"
)

//go:embed data/*.yaml
var embedded embed.FS

// EmbeddedFS returns the bundled default catalog.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default loads the bundled catalog.
func Default(options ...Option) (*Catalog, error) {
	return LoadFS(EmbeddedFS(), options...)
}
