package config

import "strings"

// IndexFileExt is the extension of index files.
const IndexFileExt = ".jaif"

// ClassFileExt is the extension of compiled classes.
const ClassFileExt = ".class"

// IndexFileExtensions are all recognized index file extensions.
var IndexFileExtensions = []string{".jaif", ".index"}

// ConfigFileNames are searched for, in order, in each directory.
var ConfigFileNames = []string{"annoscene.yaml", "annoscene.yml"}

// Defaults for omitted configuration keys.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "auto"
	DefaultStorePath   = "annoscene.db"
	DefaultPrintIndent = 4
)

// HasIndexExt reports whether path names an index file.
func HasIndexExt(path string) bool {
	for _, ext := range IndexFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// HasClassExt reports whether path names a class file.
func HasClassExt(path string) bool {
	return strings.HasSuffix(path, ClassFileExt)
}
