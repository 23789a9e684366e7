// Package source loads datasets from files in a local directory or a bucket, and from SQL queries.
package source

import (
	"context"
	"errors"
	"strings"

	"datalanding/utils"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

// ErrFileNotFound is returned by GetFile when the source has no file at the requested path.
var ErrFileNotFound = errors.New("file not found")

// FileInfo represents a file to be processed - may be temporary
type FileInfo struct {
	// RelativePath specifies the file path relative to Source. Used for addressing files in the remote data source.
	RelativePath string
	// LocalPath an absolute path of a local file (downloaded from a remote data source if needed)
	LocalPath string
	// Size the file Size in bytes - important for Parquet APIs
	Size int64
	// Temp indicates that the file is temporary and must be removed by Dispose (downloaded from a bucket)
	Temp bool
}

// Source is a collection of data files addressed by relative paths.
type Source interface {

	// GetFile returns a file structure, matching the provided relative path.
	// The returned file structure points to a local file (with an absolute LocalPath),
	// where the file may be downloaded from a remote storage and kept temporarily
	// until it is disposed.
	GetFile(ctx context.Context, relativePath string) (FileInfo, error)

	// Dispose this method must be called for every returned file when it is not needed anymore.
	// It will make sure all temporary files are removed and not use disk space when not needed.
	// If the file is not a temporary file, this method does nothing.
	Dispose(file FileInfo)

	// ListFiles returns relative paths of the files directly inside relativePath whose names match
	// fileMask (for example "*.json"). Only simple masks with a single "*" are supported.
	// The returned paths can be used in GetFile.
	ListFiles(ctx context.Context, relativePath string, fileMask string) ([]string, error)
}

// splitMask Split the fileMask into prefix and suffix by the "*" delimiter
func splitMask(fileMask string) (prefix string, suffix string) {
	splitMask := strings.SplitN(fileMask, "*", 2)
	if len(splitMask) > 1 {
		// If there's a "*", assign the parts accordingly
		prefix, suffix = splitMask[0], splitMask[1]
	} else {
		// If there's no "*", assign the entire fileMask to prefix and suffix to empty
		prefix = fileMask
		suffix = ""
	}
	return
}

func matchMask(name, fileMask string) bool {
	if fileMask == "" || fileMask == "*" {
		return true
	}
	if !strings.Contains(fileMask, "*") {
		return name == fileMask
	}
	prefix, suffix := splitMask(fileMask)
	return len(name) >= len(prefix)+len(suffix) && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix)
}
