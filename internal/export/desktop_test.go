package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

// fakeToolchain lays out a Players directory with stand-in binaries.
func fakeToolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()
	root := t.TempDir()
	players := filepath.Join(root, "Players")
	for _, name := range []string{
		filepath.Join("Windows", "Windows.exe"),
		filepath.Join("Windows", "Windows64.exe"),
		filepath.Join("Linux", "LinuxPlayer32"),
		filepath.Join("Linux", "LinuxPlayer64"),
	} {
		path := filepath.Join(players, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0755))
	}
	return &toolchain.Toolchain{Root: root, PlayersDir: players}
}

func desktopProject(t *testing.T) *project.Project {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "media"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "media", "sprite.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "media", "Thumbs.db"), []byte("junk"), 0644))
	plugins := filepath.Join(base, "Plugins", "MyPlugin")
	require.NoError(t, os.MkdirAll(plugins, 0755))
	for _, name := range []string{"Windows.dll", "Windows64.dll", "Linux.so", "Mac.dylib"} {
		require.NoError(t, os.WriteFile(filepath.Join(plugins, name), []byte(name), 0644))
	}
	return &project.Project{BasePath: base, Name: "My Game", Version: "1.2"}
}

func TestExportWindowsBothArchitectures(t *testing.T) {
	t.Parallel()

	tc := fakeToolchain(t)
	proj := desktopProject(t)
	folder, err := exportWindows(tc, proj, platform.ArchSet{X86: true, X64: true})
	require.NoError(t, err)
	require.Equal(t, proj.ReleaseFolder("windows", platform.ArchSet{X86: true, X64: true}), folder)

	// The display name keeps its space; only release folders sanitize it.
	require.FileExists(t, filepath.Join(folder, "My Game.exe"))
	require.FileExists(t, filepath.Join(folder, "My Game64.exe"))
	require.FileExists(t, filepath.Join(folder, "media", "sprite.png"))
	require.NoFileExists(t, filepath.Join(folder, "media", "Thumbs.db"))

	plugins := filepath.Join(folder, "Plugins", "MyPlugin")
	require.FileExists(t, filepath.Join(plugins, "Windows.dll"))
	require.FileExists(t, filepath.Join(plugins, "Windows64.dll"))
	require.NoFileExists(t, filepath.Join(plugins, "Linux.so"))
	require.NoFileExists(t, filepath.Join(plugins, "Mac.dylib"))
}

func TestExportWindows64BitOnly(t *testing.T) {
	t.Parallel()

	tc := fakeToolchain(t)
	proj := desktopProject(t)
	folder, err := exportWindows(tc, proj, platform.ArchSet{X64: true})
	require.NoError(t, err)

	// Alone, the 64-bit executable takes the plain name.
	require.FileExists(t, filepath.Join(folder, "My Game.exe"))
	require.NoFileExists(t, filepath.Join(folder, "My Game64.exe"))
	require.NoFileExists(t, filepath.Join(folder, "Plugins", "MyPlugin", "Windows.dll"))
	require.FileExists(t, filepath.Join(folder, "Plugins", "MyPlugin", "Windows64.dll"))
}

func TestExportLinux(t *testing.T) {
	t.Parallel()

	tc := fakeToolchain(t)
	proj := desktopProject(t)
	folder, err := exportLinux(tc, proj, platform.ArchSet{X86: true, X64: true})
	require.NoError(t, err)
	require.Equal(t, proj.ReleaseFolder("linux", platform.ArchSet{X86: true, X64: true}), folder)

	// Linux binaries use the sanitized name.
	require.FileExists(t, filepath.Join(folder, "MyGame32"))
	require.FileExists(t, filepath.Join(folder, "MyGame64"))

	plugins := filepath.Join(folder, "Plugins", "MyPlugin")
	require.FileExists(t, filepath.Join(plugins, "Linux.so"))
	require.NoFileExists(t, filepath.Join(plugins, "Windows.dll"))
	require.NoFileExists(t, filepath.Join(plugins, "Mac.dylib"))
}

func TestExportDesktopNoMediaNoPlugins(t *testing.T) {
	t.Parallel()

	tc := fakeToolchain(t)
	proj := &project.Project{BasePath: t.TempDir(), Name: "Bare"}
	folder, err := exportWindows(tc, proj, platform.ArchSet{X86: true})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(folder, "Bare.exe"))
	require.NoDirExists(t, filepath.Join(folder, "media"))
	require.NoDirExists(t, filepath.Join(folder, "Plugins"))
}
