// Package buildfile reads the declarative YAML build file that drives the
// tool: one project, an optional compiler location, and a list of builds to
// perform in order. All names are validated up front so a bad file fails
// before any export starts.
package buildfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"agkbuild/internal/errs"
	"agkbuild/internal/export"
	"agkbuild/internal/platform"
	"agkbuild/internal/tasks"
)

// File is one parsed build file.
type File struct {
	// Project is the path to the .agk project descriptor, relative to the
	// build file.
	Project string `yaml:"project"`
	// AGKPath optionally pins the compiler installation; when empty the
	// installation is discovered.
	AGKPath string  `yaml:"agk_path"`
	Builds  []Build `yaml:"builds"`

	dir string
}

// Build is one export run within the file.
type Build struct {
	Name         string   `yaml:"name"`
	Platforms    []string `yaml:"platforms"`
	Architecture []string `yaml:"architecture"`

	ProjectName string `yaml:"project_name"`
	Version     string `yaml:"version"`

	IncludeTags  map[string]string `yaml:"include_tags"`
	IncludeFiles []includeFile     `yaml:"include_files"`
	ExcludeMedia []string          `yaml:"exclude_media"`

	Settings map[string]string `yaml:"settings"`

	Archive       bool   `yaml:"archive"`
	ArchiveFormat string `yaml:"archive_format"`

	Installer    *tasks.InstallerConfig `yaml:"installer"`
	Debian       *tasks.DebianConfig    `yaml:"debian"`
	ReleaseNotes bool                   `yaml:"release_notes"`

	UseProjectOutputPaths bool `yaml:"use_project_output_paths"`
}

// includeFile accepts either a bare path or a {src, dst} mapping.
type includeFile export.IncludeFile

func (f *includeFile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		f.Src = s
		return nil
	}
	var m struct {
		Src string `yaml:"src"`
		Dst string `yaml:"dst"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	if m.Src == "" {
		return fmt.Errorf("include_files entry has no src")
	}
	f.Src, f.Dst = m.Src, m.Dst
	return nil
}

// Load reads and validates the build file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ConfigWrap(err, "could not read build file %q", path)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a build file whose relative paths resolve against dir.
func Parse(data []byte, dir string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errs.ConfigWrap(err, "malformed build file")
	}
	f.dir = dir

	if f.Project == "" {
		return nil, errs.Configf("build file names no project")
	}
	if len(f.Builds) == 0 {
		return nil, errs.Configf("build file declares no builds")
	}
	for i := range f.Builds {
		b := &f.Builds[i]
		if _, err := platform.ParseSet(b.Platforms); err != nil {
			return nil, errs.ConfigWrap(err, "build %d", i+1)
		}
		if _, err := platform.ParseArchSet(b.Architecture); err != nil {
			return nil, errs.ConfigWrap(err, "build %d", i+1)
		}
		if b.Archive && b.ArchiveFormat != "" &&
			b.ArchiveFormat != tasks.FormatZip && b.ArchiveFormat != tasks.FormatTarXz {
			return nil, errs.Configf("build %d: unknown archive format %q", i+1, b.ArchiveFormat)
		}
	}
	return &f, nil
}

// ProjectPath returns the project descriptor path resolved against the build
// file's directory.
func (f *File) ProjectPath() string {
	if filepath.IsAbs(f.Project) {
		return f.Project
	}
	return filepath.Join(f.dir, f.Project)
}

// Requests converts the builds into export requests, in file order.
func (f *File) Requests() ([]*export.Request, error) {
	reqs := make([]*export.Request, 0, len(f.Builds))
	for i := range f.Builds {
		b := &f.Builds[i]
		set, err := platform.ParseSet(b.Platforms)
		if err != nil {
			return nil, errs.ConfigWrap(err, "build %d", i+1)
		}
		arch, err := platform.ParseArchSet(b.Architecture)
		if err != nil {
			return nil, errs.ConfigWrap(err, "build %d", i+1)
		}
		req := &export.Request{
			ProjectFile:           f.ProjectPath(),
			Platforms:             set,
			Arch:                  arch,
			ProjectName:           b.ProjectName,
			ReleaseName:           b.Name,
			Version:               b.Version,
			IncludeTags:           b.IncludeTags,
			ExcludeMedia:          b.ExcludeMedia,
			Settings:              b.Settings,
			ArchiveOutput:         b.Archive,
			ArchiveFormat:         b.ArchiveFormat,
			Installer:             b.Installer,
			Debian:                b.Debian,
			ReleaseNotes:          b.ReleaseNotes,
			UseProjectOutputPaths: b.UseProjectOutputPaths,
		}
		for _, inc := range b.IncludeFiles {
			req.IncludeFiles = append(req.IncludeFiles, export.IncludeFile(inc))
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
