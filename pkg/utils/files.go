package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the extension of source files picked up from directories.
const SourceExt = ".c"

// GetPathInfo resolves relPath to an absolute path and its directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}

// OutputPath returns where the listing for src is written: src with its
// extension replaced by suffix, placed in outDir when outDir is set and next
// to src otherwise.
func OutputPath(src, outDir, suffix string) (string, error) {
	fullPath, parentDir, err := GetPathInfo(src)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(fullPath), filepath.Ext(fullPath)) + suffix
	if outDir == "" {
		return filepath.Join(parentDir, base), nil
	}
	return filepath.Join(outDir, base), nil
}

// ExpandSources replaces every directory in args with the source files it
// contains, sorted by name. Plain files are kept in order.
func ExpandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == SourceExt {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
