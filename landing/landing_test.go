package landing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"datalanding/dataset"
	"datalanding/posix"
	"datalanding/source"
	"datalanding/store"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type putCall struct {
	bucket, key string
	format      dataset.Format
	rows        int
}

type fakeObjects struct {
	puts    []putCall
	objects map[string][]store.ObjectInfo
	putErr  error
}

func (f *fakeObjects) ListBuckets(context.Context) ([]string, error) {
	names := make([]string, 0, len(f.objects))
	for name := range f.objects {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeObjects) ListObjects(_ context.Context, bucket string) ([]store.ObjectInfo, error) {
	return f.objects[bucket], nil
}

func (f *fakeObjects) Put(_ context.Context, ds *dataset.Dataset, bucket, key string, format dataset.Format) (store.PutResult, error) {
	if f.putErr != nil {
		return store.PutResult{}, f.putErr
	}
	f.puts = append(f.puts, putCall{bucket: bucket, key: key, format: format, rows: ds.Len()})
	return store.PutResult{Bucket: bucket, Key: key, ContentType: format.ContentType(), Size: 42}, nil
}

type fakeTables struct {
	table   string
	columns []string
	kinds   []dataset.Kind
	rows    [][]any
	size    int64
	sizeErr error
}

func (f *fakeTables) WriteDataset(_ context.Context, table string, ds *dataset.Dataset) (int64, error) {
	f.table = table
	f.size += int64(ds.Len())
	return int64(ds.Len()), nil
}

func (f *fakeTables) CopyRows(_ context.Context, table string, columns []string, kinds []dataset.Kind, src pgx.CopyFromSource) (int64, error) {
	f.table, f.columns, f.kinds = table, columns, kinds
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
	}
	if err := src.Err(); err != nil {
		return 0, err
	}
	f.size += int64(len(f.rows))
	return int64(len(f.rows)), nil
}

func (f *fakeTables) TableSize(context.Context, string) (int64, error) {
	return f.size, f.sizeErr
}

// unknownTarget is a StorageTarget no Lander knows about.
type unknownTarget struct{ Bucket }

func users(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRows([]string{"id", "name", "email"}, [][]any{
		{int64(1), "alice", "alice@example.com"},
		{int64(2), "bob", nil},
	})
	require.NoError(t, err)
	return ds
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		kind, location string
		want           StorageTarget
	}{
		{"s3", "landing", Bucket{Name: "landing"}},
		{"posix", "/demovol", Directory{Path: "/demovol"}},
		{"table", "public.users", Table{Name: "public.users"}},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.kind, tt.location)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseTarget("ftp", "host")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = ParseTarget("s3", "")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestUploadDescriptor(t *testing.T) {
	tests := []struct {
		name        string
		format      dataset.Format
		fileName    string
		contentType string
	}{
		{"users", dataset.CSV, "users.csv", "text/csv"},
		{"users.json", dataset.JSON, "users.json", "application/json"},
		{"users.csv", dataset.Parquet, "users.csv.parquet", "application/octet-stream"},
	}
	for _, tt := range tests {
		d := UploadDescriptor{Target: Bucket{Name: "b"}, Name: tt.name, Format: tt.format}
		assert.Equal(t, tt.fileName, d.FileName())
		assert.Equal(t, tt.contentType, d.ContentType())
	}
}

func TestLand(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{}
	tables := &fakeTables{}
	fs := afero.NewMemMapFs()
	lander := &Lander{Objects: objects, Directories: &posix.DirectoryWriter{Fs: fs}, Tables: tables}
	ds := users(t)

	result, err := lander.Land(ctx, ds, UploadDescriptor{Target: Bucket{Name: "landing"}, Name: "users", Format: dataset.JSON})
	require.NoError(t, err)
	assert.Equal(t, "s3://landing/users.json", result.Location)
	assert.Equal(t, []putCall{{bucket: "landing", key: "users.json", format: dataset.JSON, rows: 2}}, objects.puts)

	result, err = lander.Land(ctx, ds, UploadDescriptor{Target: Directory{Path: "/demovol"}, Name: "users", Format: dataset.CSV})
	require.NoError(t, err)
	assert.Equal(t, "/demovol/users.csv", result.Location)
	exists, err := afero.Exists(fs, "/demovol/users.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	result, err = lander.Land(ctx, ds, UploadDescriptor{Target: Table{Name: "public.users"}})
	require.NoError(t, err)
	assert.Equal(t, "public.users", tables.table)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, int64(2), result.TableRows)

	tables.sizeErr = errors.New("permission denied")
	result, err = lander.Land(ctx, ds, UploadDescriptor{Target: Table{Name: "public.users"}})
	require.NoError(t, err)
	assert.Zero(t, result.TableRows)

	_, err = lander.Land(ctx, ds, UploadDescriptor{Target: unknownTarget{}, Name: "users", Format: dataset.CSV})
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = lander.Land(ctx, ds, UploadDescriptor{Name: "users", Format: dataset.CSV})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestLandErrors(t *testing.T) {
	ctx := context.Background()
	ds := users(t)

	_, err := (&Lander{}).Land(ctx, ds, UploadDescriptor{Target: Table{Name: "users"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	uploadErr := &store.UploadError{Bucket: "landing", Key: "users.csv", Err: errors.New("reset")}
	lander := &Lander{Objects: &fakeObjects{putErr: uploadErr}}
	_, err = lander.Land(ctx, ds, UploadDescriptor{Target: Bucket{Name: "landing"}, Name: "users", Format: dataset.CSV})
	var got *store.UploadError
	assert.ErrorAs(t, err, &got)
}

func TestStreamToTable(t *testing.T) {
	ds := users(t)
	body, err := dataset.Serialize(ds, dataset.Parquet)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "users.parquet")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	tables := &fakeTables{size: 5}
	lander := &Lander{Tables: tables}
	reader := source.NewParquetReader(source.FileInfo{LocalPath: path, Size: int64(len(body))}, nil)
	result, err := lander.StreamToTable(context.Background(), reader, Table{Name: "staging.users"})
	require.NoError(t, err)

	assert.Equal(t, "staging.users", tables.table)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, int64(7), result.TableRows)
	assert.Equal(t, int64(2), reader.RowCount())
	require.Len(t, tables.rows, 2)
	// Parquet orders leaves by name
	assert.Equal(t, []string{"email", "id", "name"}, tables.columns)
	assert.Equal(t, []dataset.Kind{dataset.KindString, dataset.KindInt, dataset.KindString}, tables.kinds)
	assert.Equal(t, []any{"alice@example.com", int64(1), "alice"}, tables.rows[0])
	assert.Equal(t, []any{nil, int64(2), "bob"}, tables.rows[1])

	reader = source.NewParquetReader(source.FileInfo{LocalPath: path}, nil)
	_, err = (&Lander{}).StreamToTable(context.Background(), reader, Table{Name: "users"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{objects: map[string][]store.ObjectInfo{
		"landing": {{Key: "old.csv", Size: 3}},
	}}
	session := NewSession(&Lander{Objects: objects}, nil)

	_, err := session.Save(ctx)
	assert.ErrorIs(t, err, ErrIncomplete)

	session.SetSource(users(t))
	session.RemoveColumns = []string{"email"}
	session.MaskColumns = []string{"name"}
	require.NoError(t, session.Refine())
	assert.Equal(t, []any{int64(1), "al*****"}, session.Current().Row(0))

	require.NoError(t, session.SelectBucket(ctx, "landing"))
	assert.Equal(t, Bucket{Name: "landing"}, session.Target)
	assert.Len(t, session.BucketContent, 1)

	session.DestinationName = "users"
	session.Format = dataset.Parquet
	result, err := session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3://landing/users.parquet", result.Location)
	require.Len(t, objects.puts, 1)
	assert.Equal(t, 2, objects.puts[0].rows)

	assert.Contains(t, session.Logs(), "Bucket selected")
	assert.Contains(t, session.Logs(), "Saved")

	err = session.SelectFolder("/demovol")
	assert.ErrorIs(t, err, ErrNotConfigured)

	session.MaskColumns = []string{"missing"}
	assert.ErrorIs(t, session.Refine(), dataset.ErrUnknownColumn)
}

func TestSessionSelectFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/demovol/b.csv", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/demovol/a.csv", []byte("x"), 0o644))
	lister := &posix.Lister{Fs: fs, Allowed: posix.DefaultAllowList()}
	session := NewSession(&Lander{Directories: &posix.DirectoryWriter{Fs: fs}}, lister)

	require.NoError(t, session.SelectFolder("/demovol"))
	require.Len(t, session.FolderContent, 2)
	assert.Equal(t, "a.csv", session.FolderContent[0].Name)
	assert.Equal(t, Directory{Path: "/demovol"}, session.Target)

	require.NoError(t, session.SelectFolder("/etc"))
	assert.Empty(t, session.FolderContent)
}
