package posix

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("id\n1\n"), 0o640))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "dangling")))

	lister := NewLister("", AllowList{dir})
	entries, err := lister.ListDirectory(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	SortByName(entries)
	link, file, sub := entries[0], entries[1], entries[2]

	assert.Equal(t, "dangling", link.Name)
	assert.True(t, strings.HasPrefix(link.Mode, "l"), "mode %q", link.Mode)
	assert.Equal(t, filepath.Join(dir, "missing"), link.SymlinkTarget)

	assert.Equal(t, "data.csv", file.Name)
	assert.Equal(t, "-rw-r-----", file.Mode)
	assert.Equal(t, int64(5), file.Size)
	assert.Empty(t, file.SymlinkTarget)

	assert.Equal(t, "sub", sub.Name)
	assert.True(t, strings.HasPrefix(sub.Mode, "d"), "mode %q", sub.Mode)

	for _, entry := range entries {
		assert.GreaterOrEqual(t, entry.LinkCount, uint64(1))
		assert.NotEmpty(t, entry.Owner)
		assert.NotEmpty(t, entry.Group)
		assert.False(t, entry.Modified.IsZero())
	}
}

func TestListDirectoryUnderRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demovol"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "demovol", "a.json"), []byte("{}\n"), 0o644))

	entries, err := NewLister(root, DefaultAllowList()).ListDirectory("/demovol")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name)
}

func TestListDirectoryOutsideAllowList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("x"), 0o600))

	lister := NewLister("", DefaultAllowList())
	for _, path := range []string{dir, "/etc", "/demovol/../etc"} {
		entries, err := lister.ListDirectory(path)
		require.NoError(t, err, path)
		assert.NotNil(t, entries, path)
		assert.Empty(t, entries, path)
	}
}

// brokenEntryFs fails to inspect one entry name.
type brokenEntryFs struct {
	afero.Fs
	broken string
}

func (b brokenEntryFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if filepath.Base(name) == b.broken {
		return nil, false, errors.New("permission denied")
	}
	return b.Fs.(afero.Lstater).LstatIfPossible(name)
}

func TestListDirectorySkipsBrokenEntries(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/demovol/good.csv", []byte("id\n"), 0o644))
	require.NoError(t, afero.WriteFile(memFs, "/demovol/bad.csv", []byte("id\n"), 0o644))

	lister := &Lister{Fs: brokenEntryFs{Fs: memFs, broken: "bad.csv"}, Allowed: DefaultAllowList()}
	entries, err := lister.ListDirectory("/demovol")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good.csv", entries[0].Name)
	assert.Equal(t, unknownOwner, entries[0].Owner)
	assert.Equal(t, uint64(1), entries[0].LinkCount)
}

func TestListDirectoryMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	_, err := NewLister("", AllowList{dir}).ListDirectory(dir)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestListingEntryJSON(t *testing.T) {
	data, err := json.Marshal(ListingEntry{Mode: "-rw-r--r--", LinkCount: 1, Name: "a"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	assert.ElementsMatch(t, []string{"mode", "link_count", "owner", "group", "size_bytes", "modified", "name",
		"symlink_target"}, keys)
}

func TestAllowListContains(t *testing.T) {
	allowed := DefaultAllowList()
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/demovol", true},
		{"/demovol/", true},
		{"/tenant1/../tenant2", true},
		{"/tenant1/user13", false},
		{"/demovol/sub", false},
		{"demovol", false},
	}
	for _, tt := range tests {
		if got := allowed.Contains(tt.path); got != tt.want {
			t.Errorf("Contains(%q) = %v; want %v", tt.path, got, tt.want)
		}
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode fs.FileMode
		want string
	}{
		{0o644, "-rw-r--r--"},
		{fs.ModeDir | 0o755, "drwxr-xr-x"},
		{fs.ModeSymlink | 0o777, "lrwxrwxrwx"},
		{fs.ModeDevice | fs.ModeCharDevice | 0o620, "crw--w----"},
		{fs.ModeDevice | 0o660, "brw-rw----"},
		{fs.ModeNamedPipe | 0o600, "prw-------"},
		{fs.ModeSocket | 0o755, "srwxr-xr-x"},
		{fs.ModeSetuid | 0o755, "-rwsr-xr-x"},
		{fs.ModeSetuid | 0o644, "-rwSr--r--"},
		{fs.ModeSetgid | 0o755, "-rwxr-sr-x"},
		{fs.ModeDir | fs.ModeSticky | 0o777, "drwxrwxrwt"},
		{fs.ModeDir | fs.ModeSticky | 0o776, "drwxrwxrwT"},
	}
	for _, tt := range tests {
		if got := ModeString(tt.mode); got != tt.want {
			t.Errorf("ModeString(%v) = %v; want %v", tt.mode, got, tt.want)
		}
	}
}
