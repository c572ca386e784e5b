package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const heicExt = ".heic"

// FindHEICFiles walks dir and returns every regular file whose extension
// is .heic in any letter case, sorted for a stable processing order.
// Symlinks to regular files count; unreadable entries below dir are
// skipped. A missing dir yields an empty result.
func FindHEICFiles(dir string) ([]string, error) {
	files, _, err := scanHEICFiles(dir)
	return files, err
}

// scanHEICFiles is FindHEICFiles that also reports the entries it had to
// skip. Only a failure on dir itself is returned as err.
func scanHEICFiles(dir string) (files []string, skipped []error, err error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			skipped = append(skipped, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), heicExt) {
			return nil
		}

		switch {
		case d.Type().IsRegular():
			files = append(files, path)
		case d.Type()&fs.ModeSymlink != 0:
			// Dangling links are ignored like any other non-file.
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(files)
	return files, skipped, nil
}

// outputName maps a source path to its destination file name: the source
// stem plus ext.
func outputName(src, ext string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
