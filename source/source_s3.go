package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"datalanding/store"

	"go.uber.org/zap"
)

// ObjectStore is the part of the store client an S3Source reads through.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket string) ([]store.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
}

// S3Source reads objects of a bucket, downloading each requested object to a temporary file.
type S3Source struct {
	client ObjectStore
	bucket string
	// tempDir receives downloaded objects; empty means the OS default
	tempDir string
}

// NewS3Source creates a source over bucket.
func NewS3Source(client ObjectStore, bucket, tempDir string) *S3Source {
	return &S3Source{client: client, bucket: bucket, tempDir: tempDir}
}

func (s *S3Source) GetFile(ctx context.Context, key string) (FileInfo, error) {
	key = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(key)), "/")
	body, _, err := s.client.GetObject(ctx, s.bucket, key)
	if errors.Is(err, store.ErrObjectNotFound) {
		return FileInfo{}, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	if err != nil {
		return FileInfo{}, err
	}
	defer func() {
		_ = body.Close()
	}()

	// keep the extension so that the temporary file is recognized by Load
	tmp, err := os.CreateTemp(s.tempDir, "landing-*"+path.Ext(key))
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	file := FileInfo{RelativePath: key, LocalPath: tmp.Name(), Temp: true}

	size, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		disposeTemp(file)
		return FileInfo{}, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, key, err)
	}
	file.Size = size
	log.Debug("Downloaded object", zap.String("bucket", s.bucket), zap.String("key", key),
		zap.String("localPath", file.LocalPath), zap.Int64("size", size))
	return file, nil
}

func (s *S3Source) Dispose(file FileInfo) {
	disposeTemp(file)
}

// ListFiles returns the keys directly under the relativePath "folder" whose last segment matches fileMask.
func (s *S3Source) ListFiles(ctx context.Context, relativePath string, fileMask string) ([]string, error) {
	prefix := strings.Trim(filepath.ToSlash(relativePath), "/")
	if prefix != "" && prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}

	objects, err := s.client.ListObjects(ctx, s.bucket)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(objects))
	for _, object := range objects {
		name, found := strings.CutPrefix(object.Key, prefix)
		if !found || name == "" || strings.Contains(name, "/") {
			continue
		}
		if matchMask(name, fileMask) {
			files = append(files, object.Key)
		}
	}
	return files, nil
}

var _ Source = (*S3Source)(nil)
