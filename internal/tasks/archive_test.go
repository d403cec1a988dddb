package tasks

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func releaseFolder(t *testing.T) string {
	t.Helper()
	folder := filepath.Join(t.TempDir(), "MyGame_1.2_windows_x86")
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "media"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "MyGame.exe"), []byte("exe"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "media", "sprite.png"), []byte("png"), 0644))
	return folder
}

func TestArchiveZip(t *testing.T) {
	t.Parallel()

	folder := releaseFolder(t)
	out, err := Archive(folder, FormatZip)
	require.NoError(t, err)
	require.Equal(t, folder+".zip", out)
	// The folder artifact is replaced by the archive.
	require.NoDirExists(t, folder)

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	require.True(t, names["MyGame.exe"])
	require.True(t, names["media/"])
	require.True(t, names["media/sprite.png"])

	for _, f := range r.File {
		if f.Name != "media/sprite.png" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, "png", string(data))
	}
}

func TestArchiveTarXz(t *testing.T) {
	t.Parallel()

	folder := releaseFolder(t)
	out, err := Archive(folder, FormatTarXz)
	require.NoError(t, err)
	require.Equal(t, folder+".tar.xz", out)
	require.NoDirExists(t, folder)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(xr)

	names := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		names[hdr.Name] = string(data)
	}
	require.Contains(t, names, "MyGame.exe")
	require.Equal(t, "png", names["media/sprite.png"])
}

func TestArchiveDefaultsToZip(t *testing.T) {
	t.Parallel()

	folder := releaseFolder(t)
	out, err := Archive(folder, "")
	require.NoError(t, err)
	require.Equal(t, folder+".zip", out)
}

func TestArchiveUnknownFormat(t *testing.T) {
	t.Parallel()

	folder := releaseFolder(t)
	_, err := Archive(folder, "rar")
	require.ErrorContains(t, err, `unknown archive format "rar"`)
	// A rejected format leaves the folder alone.
	require.DirExists(t, folder)
}
