package service

import (
	"os"
	"path/filepath"
)

// FileSystemImpl is the file-system service handed to wrappers.
// Relative paths resolve against the project root.
type FileSystemImpl struct {
	root string
}

// NewFileSystem creates a file-system service rooted at root
func NewFileSystem(root string) *FileSystemImpl {
	return &FileSystemImpl{root: root}
}

// Exists reports whether path exists
func (f *FileSystemImpl) Exists(path string) bool {
	_, err := os.Stat(f.Resolve(path))
	return err == nil
}

// ReadFile reads a file
func (f *FileSystemImpl) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(f.Resolve(path))
}

// WriteFile writes a file, creating parent directories as needed
func (f *FileSystemImpl) WriteFile(path string, data []byte) error {
	full := f.Resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}

// Resolve joins elem and anchors relative results at the project root
func (f *FileSystemImpl) Resolve(elem ...string) string {
	p := filepath.Join(elem...)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(f.root, p)
}
