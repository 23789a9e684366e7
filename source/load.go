package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datalanding/dataset"

	"go.uber.org/zap"
)

// ErrUnknownExtension is returned by Load for files it cannot parse.
var ErrUnknownExtension = errors.New("unknown file extension")

// Load fetches relativePath from src and parses it by extension:
// .csv, .json and .jsonl (JSON lines or an array of objects) and .parquet.
func Load(ctx context.Context, src Source, relativePath string) (*dataset.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(relativePath))
	switch ext {
	case ".csv", ".json", ".jsonl", ".parquet":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, relativePath)
	}

	file, err := src.GetFile(ctx, relativePath)
	if err != nil {
		return nil, err
	}
	defer src.Dispose(file)

	log.Debug("Loading dataset", zap.String("path", relativePath), zap.String("localPath", file.LocalPath),
		zap.Int64("size", file.Size))
	if ext == ".parquet" {
		return NewParquetReader(file, nil).ReadDataset()
	}

	f, err := os.Open(file.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", file.LocalPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var ds *dataset.Dataset
	if ext == ".csv" {
		ds, err = dataset.ReadCSV(f)
	} else {
		ds, err = dataset.ReadJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relativePath, err)
	}
	return ds, nil
}
