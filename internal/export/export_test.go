package export

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

func TestAPKOverrides(t *testing.T) {
	t.Parallel()

	req := &Request{Settings: map[string]string{"apk_keystore_password": "pw"}}

	o := apkOverrides(req, platform.GoogleAPK)
	require.Equal(t, "0", o["apk_app_type"])
	require.Equal(t, "pw", o["apk_keystore_password"])
	require.Equal(t, "1", apkOverrides(req, platform.AmazonAPK)["apk_app_type"])
	require.Equal(t, "2", apkOverrides(req, platform.OuyaAPK)["apk_app_type"])

	// The plain android target keeps the type stored in the project file.
	_, forced := apkOverrides(req, platform.Android)["apk_app_type"]
	require.False(t, forced)

	// The request's settings map is never mutated.
	_, leaked := req.Settings["apk_app_type"]
	require.False(t, leaked)
}

// failingCompiler is a stand-in compiler that reports an error on stdout
// and exits nonzero, the way the real one fails.
func failingCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the compiler stand-in")
	}
	script := filepath.Join(t.TempDir(), "compiler.sh")
	body := "#!/bin/sh\necho \"main.agc:3: unknown command\"\nexit 1\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))
	return script
}

func TestRunRestoresProjectOnCompileFailure(t *testing.T) {
	t.Parallel()

	p := loadTestProject(t, taggedSource)
	excluded := filepath.Join(p.BasePath, "media", "music", "full.ogg")
	require.NoError(t, os.MkdirAll(filepath.Dir(excluded), 0755))
	require.NoError(t, os.WriteFile(excluded, []byte("fullsound"), 0644))

	tc := &toolchain.Toolchain{Compiler: failingCompiler(t)}
	req := &Request{
		ProjectFile: filepath.Join(p.BasePath, "MyGame.agk"),
		Platforms:   platform.Set{platform.Windows},
		IncludeTags: map[string]string{
			"version": "version-demo.agc",
			"levels":  "levels-demo.agc",
		},
		ExcludeMedia: []string{filepath.Join("music", "full.ogg")},
	}
	_, err := Run(context.Background(), tc, req)
	require.Error(t, err)
	var terr *errs.ToolError
	require.ErrorAs(t, err, &terr)
	require.Contains(t, terr.Output, "unknown command")

	// A mid-export failure leaves the project exactly as it was.
	require.Equal(t, taggedSource, readMain(t, p))
	require.NoFileExists(t, filepath.Join(p.BasePath, project.MainSource+backupSuffix))
	data, rerr := os.ReadFile(excluded)
	require.NoError(t, rerr)
	require.Equal(t, "fullsound", string(data))
	require.NoDirExists(t, filepath.Join(p.BasePath, mediaExcludeDir))
}

func TestPostExportIncludeFiles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	proj := &project.Project{BasePath: base, Name: "MyGame"}
	require.NoError(t, os.WriteFile(filepath.Join(base, "LICENSE.txt"), []byte("lic"), 0644))

	folder := filepath.Join(base, "release", "MyGame_windows_x86")
	require.NoError(t, os.MkdirAll(folder, 0755))

	req := &Request{IncludeFiles: []IncludeFile{
		{Src: "LICENSE.txt"},
		{Src: "LICENSE.txt", Dst: filepath.Join("docs", "LICENSE.txt")},
	}}
	artifact, err := postExport(proj, req, folder)
	require.NoError(t, err)
	require.True(t, artifact.IsDir)
	require.Equal(t, folder, artifact.Path)
	require.FileExists(t, filepath.Join(folder, "LICENSE.txt"))
	require.FileExists(t, filepath.Join(folder, "docs", "LICENSE.txt"))
}

func TestPostExportRejectsEscapingDestinations(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	proj := &project.Project{BasePath: base, Name: "MyGame"}
	require.NoError(t, os.WriteFile(filepath.Join(base, "LICENSE.txt"), []byte("lic"), 0644))
	folder := filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(folder, 0755))

	for _, dst := range []string{
		filepath.Join("..", "escape.txt"),
		filepath.Join(string(filepath.Separator), "abs", "escape.txt"),
	} {
		req := &Request{IncludeFiles: []IncludeFile{{Src: "LICENSE.txt", Dst: dst}}}
		_, err := postExport(proj, req, folder)
		require.Error(t, err)
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestPostExportArchive(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	proj := &project.Project{BasePath: base, Name: "MyGame"}
	folder := filepath.Join(base, "release", "MyGame_windows_x86")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "MyGame.exe"), []byte("exe"), 0755))

	req := &Request{ArchiveOutput: true}
	artifact, err := postExport(proj, req, folder)
	require.NoError(t, err)
	require.False(t, artifact.IsDir)
	require.Equal(t, folder+".zip", artifact.Path)
	require.NoDirExists(t, folder)
	require.FileExists(t, artifact.Path)
}
