package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agkbuild/internal/errs"
	"agkbuild/internal/project"
)

const taggedSource = `// my game
#include "common.agc"
#include "version-full.agc" // @@version
#insert 'levels-full.agc' // @@levels trailing words ignored
Print("hi")
`

func loadTestProject(t *testing.T, source string) *project.Project {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "MyGame.agk")
	require.NoError(t, os.WriteFile(path, []byte("[apk_settings]\nx = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, project.MainSource), []byte(source), 0644))
	p, err := project.Load(path)
	require.NoError(t, err)
	return p
}

func readMain(t *testing.T, p *project.Project) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.BasePath, project.MainSource))
	require.NoError(t, err)
	return string(data)
}

func TestResolveIncludeTags(t *testing.T) {
	t.Parallel()

	p := loadTestProject(t, taggedSource)
	restore, err := resolveIncludeTags(p, map[string]string{
		"version": "version-demo.agc",
		"levels":  "levels-demo.agc",
	})
	require.NoError(t, err)

	rewritten := readMain(t, p)
	require.Contains(t, rewritten, "#include \"version-demo.agc\"\n")
	require.Contains(t, rewritten, "#insert \"levels-demo.agc\"\n")
	// Untagged lines pass through untouched.
	require.Contains(t, rewritten, "#include \"common.agc\"\n")
	require.Contains(t, rewritten, "Print(\"hi\")\n")
	require.FileExists(t, filepath.Join(p.BasePath, project.MainSource+backupSuffix))

	require.NoError(t, restore())
	require.Equal(t, taggedSource, readMain(t, p))
	require.NoFileExists(t, filepath.Join(p.BasePath, project.MainSource+backupSuffix))
}

func TestResolveIncludeTagsNoTagsInSource(t *testing.T) {
	t.Parallel()

	source := "#include \"common.agc\"\nPrint(\"hi\")\n"
	p := loadTestProject(t, source)
	restore, err := resolveIncludeTags(p, nil)
	require.NoError(t, err)
	require.Equal(t, source, readMain(t, p))
	require.NoError(t, restore())
	require.Equal(t, source, readMain(t, p))
}

func TestResolveIncludeTagsMissingValue(t *testing.T) {
	t.Parallel()

	p := loadTestProject(t, taggedSource)
	_, err := resolveIncludeTags(p, map[string]string{"version": "version-demo.agc"})
	require.Error(t, err)
	var cerr *errs.ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Contains(t, err.Error(), `no value given for include tag named "levels"`)

	// A failed rewrite leaves the project exactly as it was.
	require.Equal(t, taggedSource, readMain(t, p))
	require.NoFileExists(t, filepath.Join(p.BasePath, project.MainSource+backupSuffix))
}

func TestResolveIncludeTagsNoneGiven(t *testing.T) {
	t.Parallel()

	p := loadTestProject(t, taggedSource)
	_, err := resolveIncludeTags(p, nil)
	require.ErrorContains(t, err, "contains include tags, but none were given")
	require.Equal(t, taggedSource, readMain(t, p))
}

func TestExcludedMediaRoundTrip(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	mediaDir := filepath.Join(base, "media")
	require.NoError(t, os.MkdirAll(filepath.Join(mediaDir, "music"), 0755))
	full := filepath.Join(mediaDir, "music", "soundtrack.ogg")
	require.NoError(t, os.WriteFile(full, []byte("fullsound"), 0644))
	keep := filepath.Join(mediaDir, "sprite.png")
	require.NoError(t, os.WriteFile(keep, []byte("png"), 0644))

	require.NoError(t, stageExcludedMedia(base, []string{filepath.Join("music", "soundtrack.ogg")}))
	require.NoFileExists(t, full)
	require.FileExists(t, keep)
	require.DirExists(t, filepath.Join(base, mediaExcludeDir))

	require.NoError(t, restoreExcludedMedia(base))
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	require.Equal(t, "fullsound", string(data))
	require.NoDirExists(t, filepath.Join(base, mediaExcludeDir))
}

func TestStageExcludedMediaLeftoverStaging(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "media"), 0755))
	// A leftover staging directory means a previous restore never ran;
	// staging over it would clobber the stranded files.
	require.NoError(t, os.Mkdir(filepath.Join(base, mediaExcludeDir), 0755))
	require.Error(t, stageExcludedMedia(base, []string{"a.ogg"}))
}

func TestRestoreExcludedMediaNothingStaged(t *testing.T) {
	t.Parallel()
	require.NoError(t, restoreExcludedMedia(t.TempDir()))
}

func TestStageExcludedMediaEmptyList(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, stageExcludedMedia(base, nil))
	require.NoDirExists(t, filepath.Join(base, mediaExcludeDir))
}
