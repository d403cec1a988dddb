package html5

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agkbuild/internal/errs"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

func TestCommandsFolder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		commands int
		dynamic  bool
		want     string
	}{
		{Commands2DOnly, false, "2D"},
		{Commands2DOnly, true, "2Ddynamic"},
		{Commands2DAnd3D, false, "3D"},
		{Commands2DAnd3D, true, "3Ddynamic"},
	}
	for _, tc := range cases {
		got, err := commandsFolder(&Settings{CommandsUsed: tc.commands, DynamicMemory: tc.dynamic})
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := commandsFolder(&Settings{CommandsUsed: 7})
	require.Error(t, err)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "unrecognised choice for 'commands used'")
}

func TestResolveSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Game.agk")
	descriptor := "[html5_settings]\ncommands_used = 1\ndynamic_memory = 0\n"
	require.NoError(t, os.WriteFile(path, []byte(descriptor), 0644))
	p, err := project.Load(path)
	require.NoError(t, err)

	s, err := ResolveSettings(p, nil)
	require.NoError(t, err)
	require.Equal(t, Commands2DAnd3D, s.CommandsUsed)
	require.False(t, s.DynamicMemory)
	require.False(t, s.Precompress)

	s, err = ResolveSettings(p, map[string]string{
		"html5_dynamic_memory": "1",
		"html5_precompress":    "true",
	})
	require.NoError(t, err)
	require.True(t, s.DynamicMemory)
	require.True(t, s.Precompress)
}

// fakeHTML5Toolchain lays out the 2D player template tree.
func fakeHTML5Toolchain(t *testing.T) *toolchain.Toolchain {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	template := filepath.Join(dataDir, "html5", "2D")
	require.NoError(t, os.MkdirAll(template, 0755))

	files := map[string]string{
		"AGKPlayer.asm.js":         "asm",
		"AGKPlayer.js":             "var f = %%ADDITIONALFOLDERS%%;\nvar p = %%LOADPACKAGE%%;\n",
		"AGKPlayer.data":           "stale",
		"AGKPlayer.html.mem":       "mem",
		"background.jpg":           "jpg",
		"made-with-appgamekit.png": "png",
		"AGKPlayer.html":           "<html></html>",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(template, name), []byte(body), 0644))
	}
	return &toolchain.Toolchain{DataDir: dataDir}
}

func TestExport(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	descriptor := "[html5_settings]\ncommands_used = 0\ndynamic_memory = 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "My Game.agk"), []byte(descriptor), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "media"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "media", "sprite.png"), []byte("png"), 0644))
	p, err := project.Load(filepath.Join(base, "My Game.agk"))
	require.NoError(t, err)

	tc := fakeHTML5Toolchain(t)
	folder, err := Export(context.Background(), tc, p, nil, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "release", "MyGame_html5"), folder)

	for _, name := range bundleFiles {
		require.FileExists(t, filepath.Join(folder, name))
	}
	// The entry page carries the project name, spaces turned into
	// underscores.
	require.FileExists(t, filepath.Join(folder, "My_Game.html"))

	data, err := os.ReadFile(filepath.Join(folder, "AGKPlayer.data"))
	require.NoError(t, err)
	require.Equal(t, "png", string(data))

	loader, err := os.ReadFile(filepath.Join(folder, "AGKPlayer.js"))
	require.NoError(t, err)
	require.NotContains(t, string(loader), "%%")
	require.Contains(t, string(loader), packageUUID)

	// The scratch workspace is gone once the export returns.
	require.NoDirExists(t, filepath.Join(base, scratchDir))
}

func TestPatchLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	loader := filepath.Join(dir, "AGKPlayer.js")
	body := "var folders = %%ADDITIONALFOLDERS%%;\nvar pkg = %%LOADPACKAGE%%;\n"
	require.NoError(t, os.WriteFile(loader, []byte(body), 0644))

	pkg := &bundle{LoadPackage: `loadPackage({"files":[]})`, Folders: `createPath("/", "media");`}
	require.NoError(t, patchLoader(loader, pkg))

	patched, err := os.ReadFile(loader)
	require.NoError(t, err)
	require.NotContains(t, string(patched), "%%")
	require.Contains(t, string(patched), pkg.LoadPackage)
	require.Contains(t, string(patched), pkg.Folders)
}

func TestPatchLoaderCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	loader := filepath.Join(dir, "AGKPlayer.js")
	require.NoError(t, os.WriteFile(loader, []byte("var pkg = %%LOADPACKAGE%%;\n"), 0644))

	err := patchLoader(loader, &bundle{})
	require.Error(t, err)
	var serr *errs.SynthesisError
	require.ErrorAs(t, err, &serr)
	require.Contains(t, err.Error(), "AGKPlayer.js is corrupt")
}
