package export

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"agkbuild/internal/errs"
	"agkbuild/internal/fsu"
	"agkbuild/internal/project"
)

// backupSuffix marks the original main source file while an export runs.
const backupSuffix = ".backup"

// mediaExcludeDir stages excluded media files for the duration of one
// export run.
const mediaExcludeDir = "media_exclude"

// includeTagRe matches an include-tag annotation: an #include or #insert
// directive tagged with @@name. Anything after the tag is ignored.
var includeTagRe = regexp.MustCompile(`^(#include|#insert)\s+(?:".+"|'.+')\s+//\s*@@(\w+)`)

// resolveIncludeTags renames the main source file aside and rewrites it
// with every tagged include swapped for the file the build names. The
// returned restore func puts the original back; it must run on every exit
// path.
func resolveIncludeTags(proj *project.Project, tags map[string]string) (restore func() error, err error) {
	mainPath := filepath.Join(proj.BasePath, project.MainSource)
	backupPath := mainPath + backupSuffix

	if err := os.Rename(mainPath, backupPath); err != nil {
		return nil, err
	}
	restore = func() error {
		os.Remove(mainPath)
		return os.Rename(backupPath, mainPath)
	}

	if err := rewriteSource(backupPath, mainPath, tags); err != nil {
		if rerr := restore(); rerr != nil {
			return nil, fmt.Errorf("%w (restoring %s also failed: %v)", err, project.MainSource, rerr)
		}
		return nil, err
	}
	return restore, nil
}

func rewriteSource(srcPath, dstPath string, tags map[string]string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(dst)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()
		if m := includeTagRe.FindStringSubmatch(line); m != nil {
			directive, name := m[1], m[2]
			if len(tags) == 0 {
				dst.Close()
				return errs.Configf("the project's %s file contains include tags, but none were given", project.MainSource)
			}
			file, ok := tags[name]
			if !ok {
				dst.Close()
				return errs.Configf("no value given for include tag named %q", name)
			}
			fmt.Fprintf(w, "%s %q\n", directive, file)
			continue
		}
		fmt.Fprintln(w, line)
	}
	if err := scanner.Err(); err != nil {
		dst.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// stageExcludedMedia moves the listed media files into the staging
// directory. The directory must not already exist; a leftover from a
// previous run means an earlier restore never happened and would be
// clobbered.
func stageExcludedMedia(basePath string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	stagePath := filepath.Join(basePath, mediaExcludeDir)
	if err := os.Mkdir(stagePath, 0755); err != nil {
		return err
	}
	for _, name := range files {
		src := filepath.Join(basePath, "media", name)
		dst := filepath.Join(stagePath, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// restoreExcludedMedia moves every staged file back to its original
// relative path under media/ and removes the staging directory. It runs
// regardless of export outcome; a missing staging directory means nothing
// was excluded.
func restoreExcludedMedia(basePath string) error {
	stagePath := filepath.Join(basePath, mediaExcludeDir)
	if _, err := os.Stat(stagePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	err := filepath.WalkDir(stagePath, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stagePath, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(basePath, "media", rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return os.Rename(path, dst)
	})
	if err != nil {
		return err
	}
	return fsu.RemoveTree(stagePath)
}
