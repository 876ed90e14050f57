package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage owns the output directory and the per-run scratch area.
type LocalStorage struct {
	outputDir string
	workDir   string
}

func NewLocalStorage(outputDir, workDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		workDir:   workDir,
	}
}

func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// OutputPath joins name onto the output directory unless it is already a path.
func (s *LocalStorage) OutputPath(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(s.outputDir, name)
}

func (s *LocalStorage) ScratchDir(runID string) (string, error) {
	dir := filepath.Join(s.workDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

func CueDir(scratchDir string, cueIndex int) string {
	return filepath.Join(scratchDir, fmt.Sprintf("cue_%04d", cueIndex))
}

// SaveAudio writes data under dir, creating it first.
func (s *LocalStorage) SaveAudio(dir string, data []byte, filename string) (string, error) {
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	return path, nil
}

func (s *LocalStorage) RemoveScratch(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return nil
}
