package utils

import (
	"path/filepath"
	"strings"
)

// FindFilePathCharacters checks if a string contains illegal file path characters like ".." or the system path separator.
func FindFilePathCharacters(s string) bool {
	return strings.Contains(s, "..") || strings.ContainsRune(s, filepath.Separator) || strings.ContainsRune(s, '/')
}

// SplitList splits a comma-separated list, trimming spaces and dropping empty items.
func SplitList(s string) []string {
	var ret []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
