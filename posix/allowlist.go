package posix

import (
	"path/filepath"
	"slices"
)

// AllowList is the set of directories a Lister is permitted to enumerate.
// Only the listed directories themselves are browsable, not their subdirectories.
type AllowList []string

// DefaultAllowList returns the directories of the demo volume layout.
func DefaultAllowList() AllowList {
	return AllowList{
		"/",
		"/demovol",
		"/tenant1",
		"/tenant1/user11",
		"/tenant1/user12",
		"/tenant2",
		"/tenant2/user21",
	}
}

// Contains reports whether path, once cleaned, is one of the allowed directories.
func (a AllowList) Contains(path string) bool {
	clean := filepath.Clean(path)
	return slices.ContainsFunc(a, func(allowed string) bool {
		return filepath.Clean(allowed) == clean
	})
}
