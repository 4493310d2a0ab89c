package utils

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/annoscene/internal/config"
)

// IndexPathFor returns the index file that sits next to a class file:
// Foo.class becomes Foo.jaif.
func IndexPathFor(classPath string) string {
	return strings.TrimSuffix(classPath, config.ClassFileExt) + config.IndexFileExt
}

// ExpandClassFiles replaces every directory in paths with the class files
// found beneath it, sorted. Plain file arguments are kept in place.
func ExpandClassFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		found, err := classFilesUnder(p)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func classFilesUnder(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root && !d.IsDir() {
			found = append(found, path)
			return nil
		}
		if !d.IsDir() && config.HasClassExt(path) {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	return found, err
}
