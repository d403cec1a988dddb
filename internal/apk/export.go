package apk

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/kjk/common/u"

	"agkbuild/internal/errs"
	"agkbuild/internal/fsu"
	"agkbuild/internal/logu"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
	"agkbuild/internal/toolchain"
)

// scratchDir is the disposable workspace created under the project while an
// APK is assembled. It is removed on every exit path.
const scratchDir = "build_tmp"

var sourceFolders = []string{"sourceGoogle", "sourceAmazon", "sourceOuya"}

// Export packages the compiled project into a signed, aligned APK and
// returns the output file path. Unlike the folder-producing exports, the
// artifact is a single file; APKs are already archives.
func Export(ctx context.Context, tc *toolchain.Toolchain, proj *project.Project, overrides map[string]string, useProjectOutput bool) (outputFile string, err error) {
	s, err := ResolveSettings(proj, overrides)
	if err != nil {
		return "", err
	}
	logu.Logf("Exporting project as %s APK\n", s.Type.Name())

	if useProjectOutput {
		if outputFile, err = proj.Get("apk_settings", "output_path"); err != nil {
			return "", err
		}
	} else {
		label := "android_" + strings.ToLower(s.Type.Name())
		outputFile = filepath.Join(proj.ReleaseFolder(label, platform.ArchSet{}),
			proj.Name+"-%[type]-%[version].apk")
	}

	// The full validation gate runs before any directory is created.
	if err := validateOutputFile(outputFile); err != nil {
		return "", err
	}
	if err := s.Validate(); err != nil {
		return "", err
	}

	outputFile = strings.ReplaceAll(outputFile, "%[version]", strconv.Itoa(s.BuildNumber))
	outputFile = strings.ReplaceAll(outputFile, "%[type]", s.Type.Name())
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return "", err
	}

	applyKeystoreDefaults(s, tc)

	androidDir := tc.AndroidDir()
	srcFolder := filepath.Join(androidDir, sourceFolders[s.Type])
	workspace := filepath.Join(proj.BasePath, scratchDir)
	outputZip := strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".zip"

	defer func() {
		if u.PathExists(outputZip) {
			os.Remove(outputZip)
		}
		if rerr := fsu.RemoveTree(workspace); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := fsu.RemoveTree(workspace); err != nil {
		return "", err
	}
	if err := fsu.CopyTree(workspace, srcFolder, nil); err != nil {
		return "", err
	}

	if err := synthesizeManifest(workspace, s); err != nil {
		return "", err
	}
	if err := synthesizeResources(workspace, s); err != nil {
		return "", err
	}

	if err := runPackager(ctx, tc, workspace, outputFile, s); err != nil {
		return "", err
	}

	if !u.PathExists(outputFile) {
		return "", errs.Toolf("aapt2", "", "failed to write output files, check that your project directory is not in a write protected location")
	}
	if err := os.Rename(outputFile, outputZip); err != nil {
		return "", err
	}

	if err := appendPayload(outputZip, proj, s, androidDir, srcFolder); err != nil {
		return "", err
	}
	if err := signAPK(ctx, tc, workspace, outputZip, s); err != nil {
		return "", err
	}
	if err := alignAPK(ctx, tc, workspace, outputZip, outputFile); err != nil {
		return "", err
	}
	return outputFile, nil
}

// applyKeystoreDefaults substitutes the debug signing credentials when the
// project supplies no keystore, and names a default alias for a custom
// keystore without one.
func applyKeystoreDefaults(s *Settings, tc *toolchain.Toolchain) {
	if s.KeystoreFile == "" {
		s.KeystoreFile = filepath.Join(tc.AndroidDir(), "debug.keystore")
		s.KeystorePassword = "android"
		s.AliasName = "androiddebugkey"
		s.AliasPassword = "android"
	} else if s.AliasName == "" {
		s.AliasName = "mykeystore"
		s.AliasPassword = s.KeystorePassword
	}
	if runtime.GOOS == "windows" {
		s.KeystoreFile = filepath.FromSlash(s.KeystoreFile)
	}
}

func synthesizeManifest(workspace string, s *Settings) error {
	manifestFile := filepath.Join(workspace, "AndroidManifest.xml")
	body, err := os.ReadFile(manifestFile)
	if err != nil {
		return err
	}
	manifest, err := BuildManifest(string(body), s)
	if err != nil {
		return err
	}
	return os.WriteFile(manifestFile, []byte(manifest), 0644)
}

func synthesizeResources(workspace string, s *Settings) error {
	resourcesFile := filepath.Join(workspace, "resOrig", "values", "values.xml")
	contents, err := os.ReadFile(resourcesFile)
	if err != nil {
		return err
	}
	resolved, err := BuildResources(string(contents), s)
	if err != nil {
		return err
	}
	return os.WriteFile(resourcesFile, []byte(resolved), 0644)
}

// runPackager composes the compile/link batch and hands it to aapt2. The
// merged-resources directory is walked in deterministic order; the link
// step references every compiled resource it holds.
func runPackager(ctx context.Context, tc *toolchain.Toolchain, workspace, outputFile string, s *Settings) error {
	batch := newAapt2Batch(tc.Aapt2, workspace)
	batch.compileFile("resOrig/values/values.xml")

	icons := &iconSet{workspace: workspace, batch: batch}
	if err := icons.stageAppIcon(s); err != nil {
		return err
	}
	if err := icons.stageNotifIcon(s); err != nil {
		return err
	}
	if err := icons.stageOuyaIcon(s); err != nil {
		return err
	}

	batch.addRaw("l\n-I\n" + tc.AndroidJar + "\n" +
		"--manifest\n" + filepath.Join(workspace, "AndroidManifest.xml") + "\n" +
		"-o\n" + outputFile + "\n" +
		"--auto-add-overlay\n" +
		"--no-version-vectors\n")

	mergedPath := filepath.Join(workspace, "resMerged")
	err := filepath.WalkDir(mergedPath, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !de.IsDir() {
			batch.addRaw("-R\n" + path + "\n")
		}
		return nil
	})
	if err != nil {
		return err
	}
	batch.addRaw("\nquit\n\n")

	return batch.run(ctx)
}

// appendPayload adds the runtime pieces the resource link does not cover:
// the dex, the player libraries, the template assets and the project media.
func appendPayload(outputZip string, proj *project.Project, s *Settings, androidDir, srcFolder string) error {
	var entries []zipEntry
	entries = append(entries, zipEntry{filepath.Join(srcFolder, "classes.dex"), "classes.dex"})

	abis := []string{"arm64-v8a", "armeabi-v7a", "x86"}
	for _, abi := range abis {
		entries = append(entries, zipEntry{
			filepath.Join(androidDir, "lib", abi, "libandroid_player.so"),
			"lib/" + abi + "/libandroid_player.so",
		})
	}
	if s.ARCore != ARCoreNone {
		for _, abi := range abis {
			entries = append(entries, zipEntry{
				filepath.Join(androidDir, "lib", abi, "libarcore_sdk.so"),
				"lib/" + abi + "/libarcore_sdk.so",
			})
		}
	}

	if s.Type != platform.APKOuya {
		assetEntries, err := walkEntries(filepath.Join(androidDir, "assets"), "assets")
		if err != nil {
			return err
		}
		entries = append(entries, assetEntries...)
	}

	// A project without a media folder simply packages none.
	if mediaDir := filepath.Join(proj.BasePath, "media"); u.DirExists(mediaDir) {
		mediaEntries, err := walkEntries(mediaDir, "assets/media")
		if err != nil {
			return err
		}
		entries = append(entries, mediaEntries...)
	}

	return appendToZip(outputZip, entries)
}

func walkEntries(dir, prefix string) ([]zipEntry, error) {
	var entries []zipEntry
	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() || fsu.Ignored(de.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, zipEntry{path, prefix + "/" + filepath.ToSlash(rel)})
		return nil
	})
	return entries, err
}

// signAPK runs jarsigner over the assembled archive. The tool reports
// failures on stdout.
func signAPK(ctx context.Context, tc *toolchain.Toolchain, workspace, outputZip string, s *Settings) error {
	cmd := exec.CommandContext(ctx, tc.Jarsigner,
		"-sigalg", "MD5withRSA",
		"-digestalg", "SHA1",
		"-storepass", s.KeystorePassword,
		"-keystore", s.KeystoreFile,
		outputZip, s.AliasName,
		"-keypass", s.AliasPassword)
	cmd.Dir = workspace
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		return errs.Toolf("jarsigner", out, "failed to sign APK, is your keystore password and alias correct?")
	}
	return nil
}

// alignAPK runs zipalign to produce the final APK. The tool reports
// failures on stdout.
func alignAPK(ctx context.Context, tc *toolchain.Toolchain, workspace, outputZip, outputFile string) error {
	cmd := exec.CommandContext(ctx, tc.Zipalign, "4", outputZip, outputFile)
	cmd.Dir = workspace
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		return errs.Toolf("zipalign", out, "zip align tool returned error: %s", out)
	}
	return nil
}
