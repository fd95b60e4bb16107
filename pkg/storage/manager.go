package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Manager handles atomic writes into one output directory
type Manager struct {
	outputDir string
}

// NewManager creates a manager, creating outputDir when needed
func NewManager(outputDir string) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// NewManagerForFile creates a manager for the directory holding path and
// returns the file name to pass to Save
func NewManagerForFile(path string) (*Manager, string, error) {
	m, err := NewManager(filepath.Dir(path))
	if err != nil {
		return nil, "", err
	}
	return m, filepath.Base(path), nil
}

// Save writes r to name, replacing any existing file only once r is fully written
func (m *Manager) Save(r io.Reader, name string) error {
	filename := m.Path(name)

	out, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Path returns the full path of name inside the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}
