package posix

import (
	"fmt"
	"path/filepath"
	"strings"

	"datalanding/dataset"
	"datalanding/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DirectoryWriter saves datasets as files in a directory of Fs.
type DirectoryWriter struct {
	Fs afero.Fs
}

// NewDirectoryWriter creates a writer over the host file system, optionally confined to root.
func NewDirectoryWriter(root string) *DirectoryWriter {
	var fs afero.Fs = afero.NewOsFs()
	if root != "" && root != "/" {
		fs = afero.NewBasePathFs(fs, root)
	}
	return &DirectoryWriter{Fs: fs}
}

// Save serializes ds and writes it to dir/name.ext, creating dir when missing and replacing an existing file.
// It returns the path of the written file.
func (w *DirectoryWriter) Save(ds *dataset.Dataset, dir, name string, format dataset.Format) (string, error) {
	if !format.Valid() {
		return "", fmt.Errorf("%w: %q", dataset.ErrUnsupportedFormat, string(format))
	}
	name = strings.TrimSuffix(name, format.Extension())
	if name == "" || utils.FindFilePathCharacters(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	body, err := dataset.Serialize(ds, format)
	if err != nil {
		return "", err
	}

	if err := w.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+format.Extension())
	if err := afero.WriteFile(w.Fs, path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info("Saved file", zap.String("path", path), zap.Int("size", len(body)))
	return path, nil
}
