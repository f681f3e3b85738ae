package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed content
var content embed.FS

// Default loads the catalog shipped with the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(content, "content")
	if err != nil {
		return nil, fmt.Errorf("open embedded content: %w", err)
	}
	return Load(sub)
}

// LoadDir loads a catalog from a content directory laid out like the
// embedded one (chapters/*.yaml and glossary.yaml).
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}
