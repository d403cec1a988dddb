// Package html5 synthesizes the browser-runnable bundle: a single data blob
// concatenating the project's media files, the loader-script manifest that
// indexes it, and the surrounding player files.
package html5

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"agkbuild/internal/fsu"
)

// packageUUID identifies the data package format to the loader runtime.
const packageUUID = "e3c8dd30-b68a-4332-8c93-d0cf8f9d28a0"

var audioExts = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
	".ogg": true,
}

// bundle holds the two strings substituted into the loader script.
type bundle struct {
	// LoadPackage lists every packed file with its byte range in the blob.
	LoadPackage string
	// Folders is the sequence of path-creation directives, parents first.
	Folders string
}

// buildData walks mediaDir, writes every file's bytes to w in traversal
// order, and returns the manifest strings. Directories are recorded first,
// then files with their start/end offsets. A missing media directory
// produces an empty package.
func buildData(mediaDir string, w io.Writer) (*bundle, error) {
	loadPackage := `loadPackage({"files":[`
	folders := `Module["FS_createPath"]("/", "media", true, true);`

	var offset int64
	if fi, err := os.Stat(mediaDir); err == nil && fi.IsDir() {
		var dirs, files []string
		err := filepath.WalkDir(mediaDir, func(p string, de fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == mediaDir {
				return nil
			}
			if de.IsDir() {
				dirs = append(dirs, p)
			} else if !fsu.Ignored(de.Name()) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, dir := range dirs {
			rel, err := filepath.Rel(mediaDir, dir)
			if err != nil {
				return nil, err
			}
			short := path.Join("/media", filepath.ToSlash(rel))
			folders += fmt.Sprintf(`Module["FS_createPath"]("%s", "%s", true, true);`,
				path.Dir(short), path.Base(short))
		}

		for _, file := range files {
			rel, err := filepath.Rel(mediaDir, file)
			if err != nil {
				return nil, err
			}
			short := path.Join("/media", filepath.ToSlash(rel))
			contents, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			if _, err := w.Write(contents); err != nil {
				return nil, err
			}
			audio := 0
			if audioExts[strings.ToLower(filepath.Ext(file))] {
				audio = 1
			}
			loadPackage += fmt.Sprintf(`{"audio":%d,"start":%d,"crunched":0,"end":%d,"filename":"%s"},`,
				audio, offset, offset+int64(len(contents)), short)
			offset += int64(len(contents))
		}
	}

	loadPackage = strings.TrimSuffix(loadPackage, ",")
	loadPackage += fmt.Sprintf(`],"remote_package_size":%d,"package_uuid":"%s"})`, offset, packageUUID)
	return &bundle{LoadPackage: loadPackage, Folders: folders}, nil
}
