// Package tasks holds the post-processing steps that consume a completed
// release folder: archive creation, installer-script synthesis and Debian
// package synthesis.
package tasks

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"agkbuild/internal/fsu"
	"agkbuild/internal/logu"
)

// Archive formats.
const (
	FormatZip   = "zip"
	FormatTarXz = "tar.xz"
)

// Archive packs folder into an archive next to it and removes the folder,
// replacing the directory artifact with the archive path.
func Archive(folder, format string) (string, error) {
	var out string
	var err error
	switch format {
	case "", FormatZip:
		out, err = zipFolder(folder)
	case FormatTarXz:
		out, err = tarXzFolder(folder)
	default:
		return "", fmt.Errorf("unknown archive format %q", format)
	}
	if err != nil {
		return "", err
	}
	if size, serr := os.Stat(out); serr == nil {
		logu.Logf("Created %s (%s)\n", out, humanize.Bytes(uint64(size.Size())))
	}
	if err := fsu.RemoveTree(folder); err != nil {
		return "", err
	}
	return out, nil
}

func zipFolder(folder string) (string, error) {
	out := folder + ".zip"
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	w := zip.NewWriter(f)

	err = filepath.WalkDir(folder, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == folder {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if de.IsDir() {
			_, err := w.Create(rel + "/")
			return err
		}
		fih := &zip.FileHeader{Name: rel, Method: zip.Deflate}
		if info, ierr := de.Info(); ierr == nil {
			fih.Modified = info.ModTime()
		}
		fw, err := w.CreateHeader(fih)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(fw, src)
		return err
	})
	if err == nil {
		err = w.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

func tarXzFolder(folder string) (string, error) {
	out := folder + ".tar.xz"
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	xw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return "", err
	}
	tw := tar.NewWriter(xw)

	err = filepath.WalkDir(folder, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == folder {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if de.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err == nil {
		err = tw.Close()
	}
	if err == nil {
		err = xw.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}
