// Package landing dispatches a dataset to the storage target the user picked and keeps the
// state of an interactive landing session.
package landing

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"datalanding/dataset"
)

// ErrUnknownTarget is returned for a storage target that no client can serve.
var ErrUnknownTarget = errors.New("unknown storage target")

// StorageTarget selects where a dataset lands. It is one of Bucket, Directory or Table.
type StorageTarget interface {
	fmt.Stringer
	storageTarget()
}

// Bucket lands datasets as objects of an S3-compatible bucket.
type Bucket struct {
	Name string
}

// Directory lands datasets as files in a local or mounted directory.
type Directory struct {
	Path string
}

// Table lands datasets as rows of a PostgreSQL table, optionally qualified with a schema.
type Table struct {
	Name string
}

func (Bucket) storageTarget()    {}
func (Directory) storageTarget() {}
func (Table) storageTarget()     {}

func (b Bucket) String() string    { return "s3://" + b.Name }
func (d Directory) String() string { return d.Path }
func (t Table) String() string     { return "table " + t.Name }

// ParseTarget builds a target from its kind ("s3" or "bucket", "posix" or "dir", "table") and location.
func ParseTarget(kind, location string) (StorageTarget, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: %s without a location", ErrUnknownTarget, kind)
	}
	switch strings.ToLower(kind) {
	case "s3", "bucket":
		return Bucket{Name: location}, nil
	case "posix", "dir", "directory":
		return Directory{Path: location}, nil
	case "table", "db":
		return Table{Name: location}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, kind)
}

// UploadDescriptor names what to write where.
type UploadDescriptor struct {
	Target StorageTarget
	// Name is the object key or file name, with or without the format extension.
	Name   string
	Format dataset.Format
}

// ContentType depends on the format only.
func (d UploadDescriptor) ContentType() string {
	return d.Format.ContentType()
}

// FileName returns Name with the format extension appended unless it is already there.
func (d UploadDescriptor) FileName() string {
	ext := d.Format.Extension()
	if ext == "" || strings.EqualFold(path.Ext(d.Name), ext) {
		return d.Name
	}
	return d.Name + ext
}
