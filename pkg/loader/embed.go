package loader

import (
	"embed"
	"io/fs"
)

//go:embed forms/*
var embeddedForms embed.FS

// EmbeddedFS returns the bundled form documents. Pass it to LoadFS to load
// the built-in network interface and alert service forms.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedForms, "forms")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// Builtin loads the embedded forms.
func Builtin() (*Store, error) {
	return LoadFS(EmbeddedFS())
}
