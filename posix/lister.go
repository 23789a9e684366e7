// Package posix lists and writes directories of a POSIX file system, including mounted volumes.
package posix

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"datalanding/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

// ListingEntry is one line of an `ls -l`-like listing. The JSON field names are consumed by reports
// and must stay stable.
type ListingEntry struct {
	Mode          string    `json:"mode"`
	LinkCount     uint64    `json:"link_count"`
	Owner         string    `json:"owner"`
	Group         string    `json:"group"`
	Size          int64     `json:"size_bytes"`
	Modified      time.Time `json:"modified"`
	Name          string    `json:"name"`
	SymlinkTarget string    `json:"symlink_target"`
}

// Lister enumerates directories of Fs that appear in Allowed.
type Lister struct {
	Fs      afero.Fs
	Allowed AllowList
}

// NewLister creates a Lister over the host file system. A non-empty root confines it to that directory,
// so that allow-listed paths like "/demovol" resolve under the mount point.
func NewLister(root string, allowed AllowList) *Lister {
	var fs afero.Fs = afero.NewOsFs()
	if root != "" && root != "/" {
		fs = afero.NewBasePathFs(fs, root)
	}
	return &Lister{Fs: fs, Allowed: allowed}
}

// ListDirectory returns the immediate children of path in directory enumeration order.
// Symbolic links are reported as themselves and never followed.
//
// A path outside the allow-list yields an empty listing and a logged warning.
// An entry that cannot be inspected is logged and skipped; only a failure to read
// the directory itself is returned as an error.
func (l *Lister) ListDirectory(path string) ([]ListingEntry, error) {
	dir := filepath.Clean(path)
	if !l.Allowed.Contains(dir) {
		log.Warn("Path is not in the allow-list, nothing to list", zap.String("path", path))
		return []ListingEntry{}, nil
	}

	file, err := l.Fs.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", dir, err)
	}
	defer func() {
		_ = file.Close()
	}()

	names, err := file.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	owners := newOwnerNames()
	entries := make([]ListingEntry, 0, len(names))
	for _, name := range names {
		entry, err := l.entry(filepath.Join(dir, name), name, owners)
		if err != nil {
			log.Warn("Skipping directory entry", zap.String("dir", dir), zap.String("name", name), zap.Error(err))
			continue
		}
		log.Trace("Directory entry", zap.String("name", name), zap.String("mode", entry.Mode))
		entries = append(entries, entry)
	}
	log.Debug("Listed directory", zap.String("dir", dir), zap.Int("entries", len(entries)))
	return entries, nil
}

func (l *Lister) entry(path, name string, owners *ownerNames) (ListingEntry, error) {
	info, err := l.lstat(path)
	if err != nil {
		return ListingEntry{}, err
	}

	entry := ListingEntry{
		Mode:      ModeString(info.Mode()),
		LinkCount: 1,
		Owner:     unknownOwner,
		Group:     unknownOwner,
		Size:      info.Size(),
		Modified:  info.ModTime(),
		Name:      name,
	}
	if links, uid, gid, ok := fileOwnership(info); ok {
		entry.LinkCount = max(links, 1)
		entry.Owner = owners.user(uid)
		entry.Group = owners.group(gid)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		reader, ok := l.Fs.(afero.LinkReader)
		if !ok {
			return ListingEntry{}, fmt.Errorf("file system cannot read symbolic link %s", path)
		}
		target, err := reader.ReadlinkIfPossible(path)
		if err != nil {
			return ListingEntry{}, fmt.Errorf("failed to read symbolic link %s: %w", path, err)
		}
		entry.SymlinkTarget = target
	}
	return entry, nil
}

// lstat inspects path without following a final symbolic link when the file system supports it.
func (l *Lister) lstat(path string) (os.FileInfo, error) {
	if lstater, ok := l.Fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return l.Fs.Stat(path)
}

// SortByName orders entries by name in place, for display.
func SortByName(entries []ListingEntry) {
	slices.SortFunc(entries, func(a, b ListingEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
}
