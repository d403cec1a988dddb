// Package export sequences one build request: resolve the project, rewrite
// its main source for the release, compile once, then export every
// requested platform into its named release folder and run the
// post-processing tasks. The rewritten source file and any excluded media
// are restored on every exit path.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"agkbuild/internal/apk"
	"agkbuild/internal/errs"
	"agkbuild/internal/fsu"
	"agkbuild/internal/html5"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/tasks"
	"agkbuild/internal/toolchain"
)

// IncludeFile is one extra file copied into a release folder. Dst is
// relative to the folder; an empty Dst reuses Src.
type IncludeFile struct {
	Src string `yaml:"src"`
	Dst string `yaml:"dst"`
}

// Request describes one export run: which platforms to build, how to name
// the outputs, and which settings to override. It is plain data; the build
// file produces one Request per build.
type Request struct {
	ProjectFile string
	Platforms   platform.Set
	Arch        platform.ArchSet

	// ProjectName overrides the name from the project file, e.g. for demo
	// builds. ReleaseName qualifies the output folder names. Version
	// overrides the version scanned from the source file.
	ProjectName string
	ReleaseName string
	Version     string

	IncludeTags  map[string]string
	IncludeFiles []IncludeFile
	ExcludeMedia []string

	// Settings are per-target overrides layered over the project's stored
	// settings, keyed with the target prefix ("apk_", "html5_").
	Settings map[string]string

	ArchiveOutput bool
	ArchiveFormat string

	Installer    *tasks.InstallerConfig
	Debian       *tasks.DebianConfig
	ReleaseNotes bool

	// UseProjectOutputPaths makes the mobile and web exports honor the
	// output paths stored in the project file instead of the computed
	// release folders.
	UseProjectOutputPaths bool
}

// Artifact is the output of one platform export: an owned directory or a
// single package file.
type Artifact struct {
	Path  string
	IsDir bool
}

// Run executes the request and returns the produced artifact per platform.
// External tools run synchronously, one platform at a time, in fixed order.
func Run(ctx context.Context, tc *toolchain.Toolchain, req *Request) (result map[platform.Platform]Artifact, err error) {
	if len(req.Platforms) == 0 {
		return nil, errs.Configf("the build selects no platforms")
	}

	proj, err := project.Load(req.ProjectFile)
	if err != nil {
		return nil, err
	}

	restoreSource, err := resolveIncludeTags(proj, req.IncludeTags)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := restoreSource(); rerr != nil && err == nil {
			err = rerr
		}
		if rerr := restoreExcludedMedia(proj.BasePath); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := stageExcludedMedia(proj.BasePath, req.ExcludeMedia); err != nil {
		return nil, err
	}

	if req.ProjectName != "" {
		proj.Name = req.ProjectName
	}
	if req.ReleaseName != "" {
		proj.ReleaseName = req.ReleaseName
	}
	if req.Version != "" {
		proj.Version = req.Version
	}

	if err := tc.Compile(ctx, proj); err != nil {
		return nil, err
	}

	arch := req.Arch
	if arch.IsZero() {
		arch = platform.DefaultArch
	}

	result = make(map[platform.Platform]Artifact)
	for _, p := range platform.ExportOrder {
		if !req.Platforms.Has(p) {
			continue
		}
		artifact, aerr := exportOne(ctx, tc, proj, req, p, arch)
		if aerr != nil {
			return nil, aerr
		}
		result[p] = artifact
	}
	return result, nil
}

func exportOne(ctx context.Context, tc *toolchain.Toolchain, proj *project.Project, req *Request, p platform.Platform, arch platform.ArchSet) (Artifact, error) {
	switch p {
	case platform.Windows:
		folder, err := exportWindows(tc, proj, arch)
		if err != nil {
			return Artifact{}, err
		}
		if req.Installer != nil {
			if _, err := tasks.BuildInstaller(ctx, folder, req.Installer, proj.Version); err != nil {
				return Artifact{}, err
			}
		}
		return postExport(proj, req, folder)

	case platform.Linux:
		folder, err := exportLinux(tc, proj, arch)
		if err != nil {
			return Artifact{}, err
		}
		if req.Debian != nil {
			if _, err := tasks.BuildDeb(ctx, folder, req.Debian, proj.Version, arch); err != nil {
				return Artifact{}, err
			}
		}
		return postExport(proj, req, folder)

	case platform.HTML5:
		folder, err := html5.Export(ctx, tc, proj, req.Settings, req.UseProjectOutputPaths)
		if err != nil {
			return Artifact{}, err
		}
		return postExport(proj, req, folder)

	case platform.Android, platform.GoogleAPK, platform.AmazonAPK, platform.OuyaAPK:
		// APK exports produce a single file which is already an archive;
		// the folder post-processing does not apply.
		path, err := apk.Export(ctx, tc, proj, apkOverrides(req, p), req.UseProjectOutputPaths)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: path}, nil
	}
	return Artifact{}, fmt.Errorf("unhandled platform %s", p)
}

// apkOverrides forces the app type for the explicitly typed mobile targets;
// the plain android target keeps the type stored in the project file.
func apkOverrides(req *Request, p platform.Platform) map[string]string {
	overrides := make(map[string]string, len(req.Settings)+1)
	for k, v := range req.Settings {
		overrides[k] = v
	}
	switch p {
	case platform.GoogleAPK:
		overrides["apk_app_type"] = strconv.Itoa(int(platform.APKGoogle))
	case platform.AmazonAPK:
		overrides["apk_app_type"] = strconv.Itoa(int(platform.APKAmazon))
	case platform.OuyaAPK:
		overrides["apk_app_type"] = strconv.Itoa(int(platform.APKOuya))
	}
	return overrides
}

// postExport copies the extra include files into the completed folder,
// renders release notes, and archives the folder when requested. Archiving
// replaces the directory artifact with the archive file.
func postExport(proj *project.Project, req *Request, folder string) (Artifact, error) {
	for _, inc := range req.IncludeFiles {
		dst := inc.Dst
		if dst == "" {
			dst = inc.Src
		}
		if filepath.IsAbs(dst) {
			return Artifact{}, errs.Validationf("an include_files destination must be relative to the output folder")
		}
		if strings.Contains(dst, "..") {
			return Artifact{}, errs.Validationf("an include_files destination must stay within the output folder")
		}
		src := inc.Src
		if !filepath.IsAbs(src) {
			src = filepath.Join(proj.BasePath, src)
		}
		if err := fsu.CopyFile(filepath.Join(folder, dst), src); err != nil {
			return Artifact{}, err
		}
	}

	if req.ReleaseNotes {
		if _, err := tasks.RenderReleaseNotes(folder, proj.BasePath); err != nil {
			return Artifact{}, err
		}
	}

	if req.ArchiveOutput {
		archive, err := tasks.Archive(folder, req.ArchiveFormat)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: archive}, nil
	}
	return Artifact{Path: folder, IsDir: true}, nil
}
