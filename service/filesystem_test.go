package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_ReadWrite(t *testing.T) {
	root := t.TempDir()
	fs := NewFileSystem(root)

	if err := fs.WriteFile("reports/nested/qa.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !fs.Exists("reports/nested/qa.json") {
		t.Error("written file should exist")
	}

	data, err := fs.ReadFile("reports/nested/qa.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected contents: %s", data)
	}

	if _, err := os.Stat(filepath.Join(root, "reports", "nested", "qa.json")); err != nil {
		t.Errorf("file should be written under the root: %v", err)
	}
}

func TestFileSystem_Missing(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	if fs.Exists("package.json") {
		t.Error("missing file should not exist")
	}
	if _, err := fs.ReadFile("package.json"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFileSystem_Resolve(t *testing.T) {
	fs := NewFileSystem("/project")

	tests := []struct {
		elem     []string
		expected string
	}{
		{[]string{"package.json"}, filepath.Join("/project", "package.json")},
		{[]string{"src", "index.ts"}, filepath.Join("/project", "src", "index.ts")},
		{[]string{"/etc/hosts"}, "/etc/hosts"},
	}

	for _, tt := range tests {
		if got := fs.Resolve(tt.elem...); got != tt.expected {
			t.Errorf("Resolve(%v) = %s, want %s", tt.elem, got, tt.expected)
		}
	}
}
