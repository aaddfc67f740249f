package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UniquePath returns path unchanged when nothing occupies it, or the first
// free " (n)"-suffixed variant. Keeps downloads with identical titles from
// clobbering each other in the shared output directory.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// BaseTitle strips the directory and extension from a media path, leaving a
// display title.
func BaseTitle(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
