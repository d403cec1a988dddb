package apk

import (
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

// zipEntry is one file to add to the APK archive.
type zipEntry struct {
	src       string
	nameInZip string
}

// appendToZip rewrites the archive at path with its existing entries kept
// byte-for-byte (raw copy, no recompression) and the given entries added,
// deflate-compressed. The packager's own entries must stay untouched or the
// later alignment step would undo its work.
func appendToZip(path string, entries []zipEntry) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		reader.Close()
		return err
	}
	w := zip.NewWriter(out)

	rewrite := func() error {
		for _, f := range reader.File {
			if err := w.Copy(f); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := addFile(w, e); err != nil {
				return err
			}
		}
		return w.Close()
	}

	err = rewrite()
	reader.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func addFile(w *zip.Writer, e zipEntry) error {
	f, err := os.Open(e.src)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	fih, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	fih.Name = e.nameInZip
	fih.Method = zip.Deflate
	fw, err := w.CreateHeader(fih)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}
