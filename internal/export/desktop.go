package export

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/kjk/common/u"

	"agkbuild/internal/fsu"
	"agkbuild/internal/logu"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

// exportWindows copies the Windows player binaries, the media tree and any
// native plugins into the release folder.
func exportWindows(tc *toolchain.Toolchain, proj *project.Project, arch platform.ArchSet) (string, error) {
	logu.Logf("Exporting project for Windows: %s\n", arch)
	folder := proj.ReleaseFolder("windows", arch)
	if err := fsu.RecreateDir(folder); err != nil {
		return "", err
	}

	players := filepath.Join(tc.PlayersDir, "Windows")
	if arch.X86 {
		if err := fsu.CopyFile(filepath.Join(folder, proj.Name+".exe"), filepath.Join(players, "Windows.exe")); err != nil {
			return "", err
		}
	}
	if arch.X64 {
		// The 64-bit executable only needs the suffix when both are present.
		name := proj.Name + ".exe"
		if arch.X86 {
			name = proj.Name + "64.exe"
		}
		if err := fsu.CopyFile(filepath.Join(folder, name), filepath.Join(players, "Windows64.exe")); err != nil {
			return "", err
		}
	}

	if err := copyMedia(proj, folder); err != nil {
		return "", err
	}
	if err := copyPlugins(proj, folder, func(name string) bool {
		if strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".dylib") {
			return true
		}
		if name == "Windows.dll" && !arch.X86 {
			return true
		}
		return name == "Windows64.dll" && !arch.X64
	}); err != nil {
		return "", err
	}
	return folder, nil
}

// exportLinux copies the Linux player binaries (named after the sanitized
// project name), the media tree and any native plugins.
func exportLinux(tc *toolchain.Toolchain, proj *project.Project, arch platform.ArchSet) (string, error) {
	logu.Logf("Exporting project for Linux: %s\n", arch)
	folder := proj.ReleaseFolder("linux", arch)
	if err := fsu.RecreateDir(folder); err != nil {
		return "", err
	}

	players := filepath.Join(tc.PlayersDir, "Linux")
	cleanName := proj.SafeName()
	if arch.X86 {
		if err := fsu.CopyFile(filepath.Join(folder, cleanName+"32"), filepath.Join(players, "LinuxPlayer32")); err != nil {
			return "", err
		}
	}
	if arch.X64 {
		if err := fsu.CopyFile(filepath.Join(folder, cleanName+"64"), filepath.Join(players, "LinuxPlayer64")); err != nil {
			return "", err
		}
	}

	if err := copyMedia(proj, folder); err != nil {
		return "", err
	}
	if err := copyPlugins(proj, folder, func(name string) bool {
		return strings.HasSuffix(name, ".dll") || strings.HasSuffix(name, ".dylib")
	}); err != nil {
		return "", err
	}
	return folder, nil
}

func copyMedia(proj *project.Project, folder string) error {
	mediaDir := filepath.Join(proj.BasePath, "media")
	if !u.DirExists(mediaDir) {
		return nil
	}
	return fsu.CopyTree(filepath.Join(folder, "media"), mediaDir, nil)
}

// copyPlugins copies the project's Plugins tree, filtering out libraries
// that belong to other platforms or unselected architectures.
func copyPlugins(proj *project.Project, folder string, skipName func(name string) bool) error {
	pluginsDir := filepath.Join(proj.BasePath, "Plugins")
	if !u.DirExists(pluginsDir) {
		return nil
	}
	return fsu.CopyTree(filepath.Join(folder, "Plugins"), pluginsDir, func(path string, de fs.DirEntry) bool {
		return !de.IsDir() && skipName(de.Name())
	})
}
