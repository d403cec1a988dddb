// Package fsu carries the small filesystem helpers the export pipeline
// shares: tree copies with an ignore list, tolerant tree removal, and
// directory sizing.
package fsu

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// IgnoreFiles are never copied into any artifact.
var IgnoreFiles = []string{"Thumbs.db"}

// Ignored reports whether a file name is on the always-ignore list.
func Ignored(name string) bool {
	return slices.Contains(IgnoreFiles, name)
}

// CopyFile copies src to dst, creating dst's directory.
func CopyFile(dst, src string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	d, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, d, 0644)
}

// CopyTree copies srcDir into dstDir recursively, skipping entries for
// which skip returns true. skip may be nil; the always-ignore list applies
// regardless.
func CopyTree(dstDir, srcDir string, skip func(path string, de fs.DirEntry) bool) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}
	for _, de := range entries {
		if Ignored(de.Name()) {
			continue
		}
		srcPath := filepath.Join(srcDir, de.Name())
		if skip != nil && skip(srcPath, de) {
			continue
		}
		dstPath := filepath.Join(dstDir, de.Name())
		if de.IsDir() {
			if err := CopyTree(dstPath, srcPath, skip); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(dstPath, srcPath); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTree removes dir and everything under it. A missing dir is fine;
// any other filesystem error propagates.
func RemoveTree(dir string) error {
	return os.RemoveAll(dir)
}

// RecreateDir removes dir and creates it empty.
func RecreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DirSize sums the sizes of all regular files under dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !de.Type().IsRegular() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
