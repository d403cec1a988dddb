// Package toolchain locates the vendor-supplied AppGameKit install and wraps
// the compiler invocation. The packaging tools under data/android are
// external collaborators; only their paths are resolved here.
package toolchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kjk/common/u"
	"gopkg.in/ini.v1"

	"agkbuild/internal/errs"
	"agkbuild/internal/logu"
	"agkbuild/internal/project"
)

// AndroidJar is the platform jar handed to the resource packager.
const AndroidJar = "android28.jar"

// Candidate install locations, checked when neither the IDE config nor the
// AGK_PATH environment variable resolves the install.
var installPaths = []string{
	`C:\Program Files (x86)\Steam\steamapps\common\App Game Kit 2`,
	`C:\Program Files (x86)\The Game Creators\AGK2`,
	`C:\Program Files\The Game Creators\AGK2`,
}

// Toolchain holds the resolved tool paths for one install.
type Toolchain struct {
	Root       string
	Compiler   string
	DataDir    string // Tier 1/Editor/data: android + html5 template trees
	Aapt2      string
	AndroidJar string
	Jarsigner  string
	Zipalign   string
	PlayersDir string // desktop player binaries
}

// Find resolves the toolchain. An explicit path wins; otherwise the IDE
// config file, the AGK_PATH environment variable and the known install
// locations are tried in that order. Every required tool must exist.
func Find(explicit string) (*Toolchain, error) {
	root := explicit
	if root == "" {
		root = discoverRoot()
	}
	if root == "" {
		return nil, errs.Configf("could not determine the AppGameKit install path; set agk_path or AGK_PATH")
	}

	tc := &Toolchain{
		Root:       root,
		Compiler:   filepath.Join(root, "Tier 1", "Compiler", "AGKCompiler.exe"),
		DataDir:    filepath.Join(root, "Tier 1", "Editor", "data"),
		PlayersDir: filepath.Join(root, "Players"),
	}
	tc.Aapt2 = filepath.Join(tc.DataDir, "android", "aapt2.exe")
	tc.AndroidJar = filepath.Join(tc.DataDir, "android", AndroidJar)
	tc.Jarsigner = filepath.Join(tc.DataDir, "android", "jre", "bin", "jarsigner.exe")
	tc.Zipalign = filepath.Join(tc.DataDir, "android", "zipalign.exe")

	for _, p := range []string{tc.Compiler, tc.DataDir, tc.Aapt2, tc.AndroidJar, tc.Jarsigner, tc.Zipalign} {
		if !u.PathExists(p) {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			return nil, errs.Configf("could not find %q in the AppGameKit install", rel)
		}
	}
	return tc, nil
}

// AndroidDir is the directory holding the mobile template trees, player
// libraries and the debug keystore.
func (tc *Toolchain) AndroidDir() string {
	return filepath.Join(tc.DataDir, "android")
}

// HTML5Dir returns the web template tree for the given commands folder.
func (tc *Toolchain) HTML5Dir(commandsFolder string) string {
	return filepath.Join(tc.DataDir, "html5", commandsFolder)
}

func discoverRoot() string {
	if root := rootFromIDEConfig(); root != "" {
		return root
	}
	if root := strings.TrimSpace(os.Getenv("AGK_PATH")); root != "" && u.DirExists(root) {
		return root
	}
	for _, p := range installPaths {
		if u.DirExists(p) {
			return p
		}
	}
	return ""
}

var compilerSuffixRe = regexp.MustCompile(`(?i)(.*)[\\/]Tier 1[\\/]Compiler`)

// rootFromIDEConfig reads the editor's config file, which records the
// compiler path of the last used install.
func rootFromIDEConfig() string {
	appData := os.Getenv("LOCALAPPDATA")
	if appData == "" {
		return ""
	}
	cfg, err := ini.Load(filepath.Join(appData, "agk", "geany.conf"))
	if err != nil {
		return ""
	}
	sec, err := cfg.GetSection("buildAGK")
	if err != nil || !sec.HasKey("compiler_path") {
		return ""
	}
	compilerPath := strings.ReplaceAll(sec.Key("compiler_path").String(), `\\`, `\`)
	m := compilerSuffixRe.FindStringSubmatch(compilerPath)
	if m == nil || !u.DirExists(m[1]) {
		return ""
	}
	return m[1]
}

// Compile runs the vendor compiler on the project's main source file. The
// compiler reports errors on stdout; any stdout text or a nonzero exit code
// fails the export.
func (tc *Toolchain) Compile(ctx context.Context, p *project.Project) error {
	logu.Logf("Compiling project: %s", p.Name)
	if p.Version != "" {
		logu.Logf(", version: %s", p.Version)
	}
	if p.ReleaseName != "" {
		logu.Logf(", release: %s", p.ReleaseName)
	}
	logu.Logf("\n")

	cmd := exec.CommandContext(ctx, tc.Compiler, "-agk", project.MainSource)
	cmd.Dir = p.BasePath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		return errs.Toolf("AGKCompiler", out, "compilation error")
	}
	if err != nil {
		return errs.Toolf("AGKCompiler", stderr.String(), "compilation error: %v", err)
	}
	return nil
}
