package tasks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"agkbuild/internal/errs"
	"agkbuild/internal/fsu"
	"agkbuild/internal/logu"
	"agkbuild/internal/platform"
)

// DebianConfig drives the Debian package synthesis for one Linux release
// folder.
type DebianConfig struct {
	// PackageName defaults to a sanitized, lowercased project name.
	PackageName string `yaml:"package_name"`
	Maintainer  string `yaml:"maintainer"`
	Description string `yaml:"description"`
	// DpkgDebPath overrides the package builder location.
	DpkgDebPath string `yaml:"dpkg_deb_path"`
}

const controlTmpl = `Package: {{.Name}}
Version: {{.Version}}
Architecture: {{.Arch}}
Maintainer: {{.Maintainer}}
Installed-Size: {{.InstalledSize}}
Section: games
Priority: optional
Description: {{.Description}}
`

type controlData struct {
	Name          string
	Version       string
	Arch          string
	Maintainer    string
	InstalledSize int64
	Description   string
}

var debNameBadRe = regexp.MustCompile(`[^a-z0-9+.-]`)

// debPackageName sanitizes a display name into a valid Debian package name.
func debPackageName(name string) string {
	n := debNameBadRe.ReplaceAllString(strings.ToLower(name), "")
	if n == "" {
		n = "game"
	}
	return n
}

func debArch(arch platform.ArchSet) string {
	if arch.X64 {
		return "amd64"
	}
	return "i386"
}

// WriteDebianControl stages the release folder under a package root
// (opt/<package>) and synthesizes DEBIAN/control with the computed
// installed size. It returns the staging directory.
func WriteDebianControl(folder string, cfg *DebianConfig, version string, arch platform.ArchSet) (string, error) {
	name := cfg.PackageName
	if name == "" {
		name = debPackageName(filepath.Base(folder))
	} else if debNameBadRe.MatchString(name) {
		return "", errs.Validationf("debian package_name %q contains invalid characters", name)
	}
	if cfg.Maintainer == "" {
		return "", errs.Validationf("debian maintainer is required")
	}
	if version == "" {
		version = "1.0"
	}
	description := cfg.Description
	if description == "" {
		description = name
	}

	staging := folder + "_deb"
	if err := fsu.RecreateDir(staging); err != nil {
		return "", err
	}
	if err := fsu.CopyTree(filepath.Join(staging, "opt", name), folder, nil); err != nil {
		return "", err
	}

	size, err := fsu.DirSize(staging)
	if err != nil {
		return "", err
	}
	control := execTextTemplate(controlTmpl, controlData{
		Name:          name,
		Version:       version,
		Arch:          debArch(arch),
		Maintainer:    cfg.Maintainer,
		InstalledSize: (size + 1023) / 1024,
		Description:   description,
	})
	controlPath := filepath.Join(staging, "DEBIAN", "control")
	if err := os.MkdirAll(filepath.Dir(controlPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(controlPath, []byte(control), 0644); err != nil {
		return "", err
	}
	return staging, nil
}

// BuildDeb stages the folder, runs the package builder and removes the
// staging tree. It returns the .deb path next to the release folder.
func BuildDeb(ctx context.Context, folder string, cfg *DebianConfig, version string, arch platform.ArchSet) (string, error) {
	staging, err := WriteDebianControl(folder, cfg, version, arch)
	if err != nil {
		return "", err
	}
	defer fsu.RemoveTree(staging)

	out := folder + ".deb"
	dpkgDeb := cfg.DpkgDebPath
	if dpkgDeb == "" {
		dpkgDeb = "dpkg-deb"
	}
	logu.Logf("> %s --build %s\n", dpkgDeb, staging)
	cmd := exec.CommandContext(ctx, dpkgDeb, "--build", "--root-owner-group", staging, out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.Toolf("dpkg-deb", stderr.String(), "debian package build failed: %v", err)
	}
	return out, nil
}
