package apk

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func TestAppendToZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "game.zip")

	// An existing archive, standing in for the packager's output.
	f, err := os.Create(archive)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	fw, err := w.Create("resources.arsc")
	require.NoError(t, err)
	_, err = fw.Write([]byte("packed resources"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	dex := filepath.Join(dir, "classes.dex")
	require.NoError(t, os.WriteFile(dex, []byte("dex bytecode"), 0644))
	lib := filepath.Join(dir, "libandroid_player.so")
	require.NoError(t, os.WriteFile(lib, []byte("player lib"), 0644))

	require.NoError(t, appendToZip(archive, []zipEntry{
		{src: dex, nameInZip: "classes.dex"},
		{src: lib, nameInZip: "lib/armeabi-v7a/libandroid_player.so"},
	}))

	r, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer r.Close()

	contents := map[string]string{}
	for _, zf := range r.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[zf.Name] = string(data)
	}
	require.Equal(t, "packed resources", contents["resources.arsc"])
	require.Equal(t, "dex bytecode", contents["classes.dex"])
	require.Equal(t, "player lib", contents["lib/armeabi-v7a/libandroid_player.so"])

	// No stray temp file left behind.
	require.NoFileExists(t, archive+".tmp")
}

func TestAppendToZipMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "game.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	_, err = w.Create("keep.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	err = appendToZip(archive, []zipEntry{{src: filepath.Join(dir, "absent"), nameInZip: "x"}})
	require.Error(t, err)
	require.NoFileExists(t, archive+".tmp")

	// The original archive survives a failed append.
	r, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 1)
}
