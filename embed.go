// Package vml exposes the assets bundled into the binary: the default image
// registry and the warning header reproduced at the top of the user's
// registry file on every update.
package vml

import "embed"

//go:embed files/images.yaml files/images-header
var files embed.FS

// DefaultRegistry returns the bundled canonical image registry.
func DefaultRegistry() []byte {
	return mustRead("files/images.yaml")
}

// RegistryHeader returns the verbatim header block written at the top of the
// registry file.
func RegistryHeader() []byte {
	return mustRead("files/images-header")
}

func mustRead(path string) []byte {
	data, err := files.ReadFile(path)
	if err != nil {
		// Embedded files are fixed at build time.
		panic("missing embedded file " + path + ": " + err.Error())
	}
	return data
}
