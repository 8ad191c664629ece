package loader

import (
	"os"
	"path/filepath"
)

// canonicalSpecNames are checked first, in this order.
var canonicalSpecNames = []string{
	"openapi.yaml", "openapi.yml", "openapi.json",
	"swagger.yaml", "swagger.yml", "swagger.json",
	"api.yaml", "api.yml", "api.json",
}

// FindSpecFile locates a specification file within an API directory.
// Canonical filenames win; otherwise the lexically first *.yaml, then
// *.yml, then *.json file is used, so discovery does not depend on
// filesystem iteration order.
func FindSpecFile(dir string) (string, bool) {
	for _, name := range canonicalSpecNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	// os.ReadDir returns entries sorted by filename.
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if ok, _ := filepath.Match(pattern, entry.Name()); ok {
				return filepath.Join(dir, entry.Name()), true
			}
		}
	}

	return "", false
}
