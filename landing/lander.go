package landing

import (
	"context"
	"errors"
	"fmt"

	"datalanding/dataset"
	"datalanding/posix"
	"datalanding/store"
	"datalanding/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

// ErrNotConfigured is returned when a target is selected whose client was not set up.
var ErrNotConfigured = errors.New("storage client is not configured")

// ObjectStore is the object storage client used for Bucket targets.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)
	ListObjects(ctx context.Context, bucket string) ([]store.ObjectInfo, error)
	Put(ctx context.Context, ds *dataset.Dataset, bucket, key string, format dataset.Format) (store.PutResult, error)
}

// DirectoryStore writes files for Directory targets.
type DirectoryStore interface {
	Save(ds *dataset.Dataset, dir, name string, format dataset.Format) (string, error)
}

// DirectoryLister lists directories for browsing.
type DirectoryLister interface {
	ListDirectory(path string) ([]posix.ListingEntry, error)
}

// TableStore writes rows for Table targets.
type TableStore interface {
	WriteDataset(ctx context.Context, table string, ds *dataset.Dataset) (int64, error)
	CopyRows(ctx context.Context, table string, columns []string, kinds []dataset.Kind, src pgx.CopyFromSource) (int64, error)
	TableSize(ctx context.Context, table string) (int64, error)
}

// RowStream is a typed row source that can be copied into a table without loading it, such as a Parquet reader.
type RowStream interface {
	pgx.CopyFromSource
	Columns() ([]string, error)
	Kinds() ([]dataset.Kind, error)
	RowCount() int64
	Close() error
}

// Result describes where a dataset landed.
type Result struct {
	Target StorageTarget
	// Location is the object URL, file path or table name that was written.
	Location      string
	ContentType   string
	Size          int64
	Rows          int
	BucketCreated bool
	// TableRows is the row count of the table after writing, zero when it could not be read.
	TableRows int64
}

// Lander sends datasets to the client matching their target. Clients may be nil when the
// corresponding target is not used.
type Lander struct {
	Objects     ObjectStore
	Directories DirectoryStore
	Tables      TableStore
}

// Land writes ds as described by desc. A nil error means the data was written.
func (l *Lander) Land(ctx context.Context, ds *dataset.Dataset, desc UploadDescriptor) (Result, error) {
	if ds == nil {
		return Result{}, fmt.Errorf("%w: no dataset to land", dataset.ErrInvalidDataset)
	}
	result := Result{Target: desc.Target, Rows: ds.Len()}

	switch target := desc.Target.(type) {
	case Bucket:
		if l.Objects == nil {
			return Result{}, fmt.Errorf("%w: object store", ErrNotConfigured)
		}
		put, err := l.Objects.Put(ctx, ds, target.Name, desc.FileName(), desc.Format)
		if err != nil {
			return Result{}, err
		}
		result.Location = fmt.Sprintf("s3://%s/%s", put.Bucket, put.Key)
		result.ContentType = put.ContentType
		result.Size = put.Size
		result.BucketCreated = put.BucketCreated

	case Directory:
		if l.Directories == nil {
			return Result{}, fmt.Errorf("%w: directory writer", ErrNotConfigured)
		}
		written, err := l.Directories.Save(ds, target.Path, desc.FileName(), desc.Format)
		if err != nil {
			return Result{}, err
		}
		result.Location = written
		result.ContentType = desc.ContentType()

	case Table:
		if l.Tables == nil {
			return Result{}, fmt.Errorf("%w: table writer", ErrNotConfigured)
		}
		rows, err := l.Tables.WriteDataset(ctx, target.Name, ds)
		if err != nil {
			return Result{}, err
		}
		result.Location = target.Name
		result.Rows = int(rows)
		result.TableRows = l.tableSize(ctx, target.Name)

	default:
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownTarget, desc.Target)
	}

	log.Info("Dataset landed", zap.Stringer("target", desc.Target), zap.String("location", result.Location),
		zap.Int("rows", result.Rows), zap.Int64("size", result.Size))
	return result, nil
}

// StreamToTable copies all rows of stream into the table and closes the stream.
func (l *Lander) StreamToTable(ctx context.Context, stream RowStream, table Table) (Result, error) {
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn("Failed to close the row stream", zap.Error(err))
		}
	}()
	if l.Tables == nil {
		return Result{}, fmt.Errorf("%w: table writer", ErrNotConfigured)
	}
	columns, err := stream.Columns()
	if err != nil {
		return Result{}, err
	}
	kinds, err := stream.Kinds()
	if err != nil {
		return Result{}, err
	}
	expected := stream.RowCount()

	rows, err := l.Tables.CopyRows(ctx, table.Name, columns, kinds, stream)
	if err != nil {
		return Result{}, err
	}
	if rows != expected {
		log.Warn("Copied row count differs from the source", zap.String("table", table.Name),
			zap.Int64("copied", rows), zap.Int64("expected", expected))
	}
	result := Result{Target: table, Location: table.Name, Rows: int(rows), TableRows: l.tableSize(ctx, table.Name)}
	log.Info("Rows streamed", zap.String("table", table.Name), zap.Int64("rows", rows),
		zap.Int64("tableRows", result.TableRows))
	return result, nil
}

// tableSize reads the row count of a written table. A failure only loses the count.
func (l *Lander) tableSize(ctx context.Context, table string) int64 {
	size, err := l.Tables.TableSize(ctx, table)
	if err != nil {
		log.Warn("Failed to read the table size", zap.String("table", table), zap.Error(err))
		return 0
	}
	return size
}
