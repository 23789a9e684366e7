package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalSource reads files from a local (or mounted) directory.
type LocalSource struct {
	// localDir an absolute path to a local folder
	localDir string
}

// NewLocalSource is a constructor for creating a new LocalSource.
// The localDir must point to an existing directory; it is normalized to the current OS path format.
func NewLocalSource(localDir string) (*LocalSource, error) {
	localDir, err := filepath.Abs(filepath.Clean(localDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", localDir, err)
	}
	info, err := os.Stat(localDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory %s: %w", localDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", localDir)
	}
	return &LocalSource{localDir: localDir}, nil
}

// resolve joins a relative path to the source directory, refusing paths that escape it.
func (l *LocalSource) resolve(path string) (string, error) {
	fullPath := filepath.Join(l.localDir, path)
	rel, err := filepath.Rel(l.localDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of %s", path, l.localDir)
	}
	return fullPath, nil
}

func (l *LocalSource) GetFile(_ context.Context, path string) (FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, fullPath)
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("error retrieving file %s info: %w", fullPath, err)
	}
	return FileInfo{RelativePath: path, LocalPath: fullPath, Size: info.Size(), Temp: false}, nil
}

func (l *LocalSource) Dispose(file FileInfo) {
	disposeTemp(file)
}

func (l *LocalSource) ListFiles(_ context.Context, relativePath string, fileMask string) ([]string, error) {
	dir, err := l.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && matchMask(entry.Name(), fileMask) {
			files = append(files, filepath.Join(relativePath, entry.Name()))
		}
	}
	return files, nil
}

// disposeTemp removes a downloaded file; failures are only logged because the data was already read.
func disposeTemp(file FileInfo) {
	if !file.Temp {
		return
	}
	if err := os.Remove(file.LocalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("Failed to delete file", zap.String("path", file.LocalPath), zap.Error(err))
	}
}

var _ Source = (*LocalSource)(nil)
