package fileio

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Writer is a struct for writing files on the local disk
type Writer struct {
	// rootDir is the root directory for the writer, useful for testing
	rootDir string
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{}
}

// SetRootdir sets the root directory for the writer, useful for testing
func (r *Writer) SetRootdir(path string) {
	r.rootDir = path
}

// PathFor returns the full path for the provided file, useful for using functions
// and libraries that don't work with the fileio.Writer
func (r *Writer) PathFor(filePath string) string {
	return path.Join(r.rootDir, filePath)
}

// WriteFile writes the file at the provided path
func (r *Writer) WriteFile(filePath string, data []byte) error {
	return os.WriteFile(r.PathFor(filePath), data, 0644)
}

// WriteFileAtomic writes the file to a temporary sibling first and renames it
// into place, so readers never observe a partially written document.
func (r *Writer) WriteFileAtomic(filePath string, data []byte) error {
	target := r.PathFor(filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), fmt.Sprintf(".%s-*", filepath.Base(target)))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, target)
}

// ReadFile reads the file at the provided path
func (r *Writer) ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(r.PathFor(filePath))
}
