// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains all files embedded in the Go binary:
//   - universe/catalog.yaml - default instrument catalog used for universe selection
//
//go:embed universe
var Files embed.FS

// UniverseCatalog returns the default instrument catalog
func UniverseCatalog() ([]byte, error) {
	return Files.ReadFile("universe/catalog.yaml")
}
