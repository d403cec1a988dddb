// Package project reads a game project descriptor: an INI-style ".agk" file
// holding section-scoped settings, plus the sibling main.agc source file
// scanned once for a version constant. It also computes the canonical
// release folder names for export outputs.
package project

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"

	"agkbuild/internal/errs"
	"agkbuild/internal/logu"
	"agkbuild/internal/platform"
)

// MainSource is the project's main source file, scanned for the version
// constant and rewritten during an export to resolve include tags.
const MainSource = "main.agc"

var versionRe = regexp.MustCompile(`^#constant\s+VERSION\s+"(.+)"`)

// Project is a loaded project descriptor. It is read once and mutated only
// through the exported fields, never written back to disk; the IDE owns the
// project file.
type Project struct {
	// BasePath is the directory holding the project file.
	BasePath string
	// Name defaults to the project file name without extension. A build may
	// override it, e.g. for demo releases.
	Name string
	// ReleaseName is an optional qualifier appended to release folder names
	// to tell multiple exports of the same platform apart. It does not
	// affect the application name.
	ReleaseName string
	// Version is taken from a `#constant VERSION "..."` line in main.agc.
	// Optional.
	Version string

	file *ini.File
}

// Load reads the project file at path and scans main.agc next to it for the
// version constant.
func Load(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	logu.Logf("Opening project: %s\n", path)

	file, err := loadSettings(abs)
	if err != nil {
		return nil, err
	}

	p := &Project{
		BasePath: filepath.Dir(abs),
		Name:     strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		file:     file,
	}

	version, err := scanVersion(filepath.Join(p.BasePath, MainSource))
	if err != nil {
		return nil, err
	}
	p.Version = version
	if version != "" {
		logu.Logf("Found project version: %s\n", version)
	}
	return p, nil
}

func loadSettings(path string) (*ini.File, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errs.ConfigWrap(err, "malformed project file %q", path)
	}
	// The descriptor format has no sectionless entries; ini.v1 collects
	// them into its default section instead of failing.
	if keys := file.Section(ini.DefaultSection).Keys(); len(keys) > 0 {
		return nil, errs.Configf("project file %q: entry %q outside any declared section", path, keys[0].Name())
	}
	return file, nil
}

func scanVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := versionRe.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1], nil
		}
	}
	return "", scanner.Err()
}

// Get returns the value stored at (section, key). The error wraps
// errs.ErrNotFound when the section or key is absent; callers treat that as
// a missing required setting.
func (p *Project) Get(section, key string) (string, error) {
	sec, err := p.file.GetSection(section)
	if err != nil {
		return "", errs.ConfigWrap(errs.ErrNotFound, "project has no [%s] section", section)
	}
	if !sec.HasKey(key) {
		return "", errs.ConfigWrap(errs.ErrNotFound, "project has no %q setting in [%s]", key, section)
	}
	return sec.Key(key).String(), nil
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SafeName returns the project name with every character outside
// [A-Za-z0-9_] removed. Desktop binaries and release folders use it.
func (p *Project) SafeName() string {
	return unsafeNameRe.ReplaceAllString(p.Name, "")
}

// ReleaseFolder computes the canonical output directory for one export:
//
//	<base>/release/<safe-name>[_<version>]_<label>[_<arch tokens>][_<release name>]
//
// Absent optional segments are omitted together with their separator. The
// format is a stable contract; downstream tooling parses these names.
func (p *Project) ReleaseFolder(label string, arch platform.ArchSet) string {
	parts := []string{p.SafeName()}
	if p.Version != "" {
		parts = append(parts, p.Version)
	}
	parts = append(parts, label)
	parts = append(parts, arch.Tokens()...)
	if p.ReleaseName != "" {
		parts = append(parts, p.ReleaseName)
	}
	return filepath.Join(p.BasePath, "release", strings.Join(parts, "_"))
}
