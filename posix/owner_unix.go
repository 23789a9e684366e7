//go:build unix

package posix

import (
	"io/fs"
	"syscall"
)

// fileOwnership extracts the link count and numeric owner from the platform stat structure.
func fileOwnership(info fs.FileInfo) (links uint64, uid, gid uint32, ok bool) {
	switch stat := info.Sys().(type) {
	case *syscall.Stat_t:
		return uint64(stat.Nlink), stat.Uid, stat.Gid, true
	case syscall.Stat_t:
		return uint64(stat.Nlink), stat.Uid, stat.Gid, true
	}
	return 0, 0, 0, false
}
