package html5

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"agkbuild/internal/errs"
	"agkbuild/internal/fsu"
	"agkbuild/internal/logu"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

const scratchDir = "build_tmp"

// Command-set choices stored in the project file.
const (
	Commands2DOnly  = 0
	Commands2DAnd3D = 1
)

// bundleFiles are copied from the scratch workspace into the release
// folder.
var bundleFiles = []string{
	"AGKPlayer.asm.js",
	"AGKPlayer.js",
	"AGKPlayer.data",
	"AGKPlayer.html.mem",
	"background.jpg",
	"made-with-appgamekit.png",
}

// Settings is the resolved bag of web export settings.
type Settings struct {
	CommandsUsed  int
	DynamicMemory bool
	// Precompress additionally writes .br siblings of the bundle files for
	// static hosting.
	Precompress bool
}

// ResolveSettings layers overrides ("html5_"-prefixed keys) over the
// project's html5_settings section.
func ResolveSettings(p *project.Project, overrides map[string]string) (*Settings, error) {
	get := func(name string) (string, error) {
		if v, ok := overrides["html5_"+name]; ok {
			return v, nil
		}
		return p.Get("html5_settings", name)
	}

	s := &Settings{}
	v, err := get("commands_used")
	if err != nil {
		return nil, err
	}
	if s.CommandsUsed, err = strconv.Atoi(v); err != nil {
		return nil, errs.Configf("html5 setting commands_used is not a number: %q", v)
	}
	v, err = get("dynamic_memory")
	if err != nil {
		return nil, err
	}
	s.DynamicMemory = v != "0" && !strings.EqualFold(v, "false") && v != ""
	if v, ok := overrides["html5_precompress"]; ok {
		s.Precompress = v == "1" || strings.EqualFold(v, "true")
	}
	return s, nil
}

// commandsFolder names the player template tree for one settings
// combination.
func commandsFolder(s *Settings) (string, error) {
	switch s.CommandsUsed {
	case Commands2DOnly:
		if s.DynamicMemory {
			return "2Ddynamic", nil
		}
		return "2D", nil
	case Commands2DAnd3D:
		if s.DynamicMemory {
			return "3Ddynamic", nil
		}
		return "3D", nil
	}
	return "", errs.Validationf("unrecognised choice for 'commands used'")
}

const (
	foldersToken     = "%%ADDITIONALFOLDERS%%"
	loadPackageToken = "%%LOADPACKAGE%%"
)

// Export builds the browser bundle into the project's release tree and
// returns the output folder.
func Export(_ context.Context, tc *toolchain.Toolchain, proj *project.Project, overrides map[string]string, useProjectOutput bool) (outputFolder string, err error) {
	s, err := ResolveSettings(proj, overrides)
	if err != nil {
		return "", err
	}
	logu.Logf("Exporting project as HTML5\n")

	if useProjectOutput {
		if outputFolder, err = proj.Get("html5_settings", "output_path"); err != nil {
			return "", err
		}
	} else {
		outputFolder = proj.ReleaseFolder("html5", platform.ArchSet{})
	}
	if outputFolder == "" {
		return "", errs.Validationf("you must choose an output location to save your HTML5 files")
	}
	folder, err := commandsFolder(s)
	if err != nil {
		return "", err
	}

	workspace := filepath.Join(proj.BasePath, scratchDir)
	defer func() {
		if rerr := fsu.RemoveTree(workspace); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := fsu.RemoveTree(workspace); err != nil {
		return "", err
	}
	if err := fsu.CopyTree(workspace, tc.HTML5Dir(folder), nil); err != nil {
		return "", err
	}

	dataFile, err := os.Create(filepath.Join(workspace, "AGKPlayer.data"))
	if err != nil {
		return "", err
	}
	pkg, err := buildData(filepath.Join(proj.BasePath, "media"), dataFile)
	if cerr := dataFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	if err := patchLoader(filepath.Join(workspace, "AGKPlayer.js"), pkg); err != nil {
		return "", err
	}

	if err := fsu.RecreateDir(outputFolder); err != nil {
		return "", err
	}
	for _, name := range bundleFiles {
		if err := fsu.CopyFile(filepath.Join(outputFolder, name), filepath.Join(workspace, name)); err != nil {
			return "", err
		}
	}

	// The entry page carries the project name so it stands out as the file
	// to run.
	pageName := strings.ReplaceAll(proj.Name, " ", "_") + ".html"
	if err := fsu.CopyFile(filepath.Join(outputFolder, pageName), filepath.Join(workspace, "AGKPlayer.html")); err != nil {
		return "", err
	}

	if s.Precompress {
		if err := precompressFolder(outputFolder); err != nil {
			return "", err
		}
	}
	return outputFolder, nil
}

// patchLoader substitutes the two placeholder tokens in the loader script.
// A token that matches zero times means the template is corrupt.
func patchLoader(path string, pkg *bundle) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contents := string(body)
	for _, sub := range []struct{ token, value string }{
		{foldersToken, pkg.Folders},
		{loadPackageToken, pkg.LoadPackage},
	} {
		if !strings.Contains(contents, sub.token) {
			return errs.Synthesisf("AGKPlayer.js is corrupt, it is missing the %s variable", sub.token)
		}
		contents = strings.ReplaceAll(contents, sub.token, sub.value)
	}
	return os.WriteFile(path, []byte(contents), 0644)
}

// precompressFolder writes a best-compression .br sibling for every bundle
// file, for hosts serving precompressed assets.
func precompressFolder(folder string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".br") {
			continue
		}
		src := filepath.Join(folder, de.Name())
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		out, err := os.Create(src + ".br")
		if err != nil {
			return err
		}
		w := brotli.NewWriterLevel(out, brotli.BestCompression)
		if _, err := w.Write(data); err != nil {
			out.Close()
			return err
		}
		if err := w.Close(); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}
