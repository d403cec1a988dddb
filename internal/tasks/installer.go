package tasks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"agkbuild/internal/errs"
	"agkbuild/internal/logu"
)

// InstallerConfig drives the Windows installer-script synthesis for one
// release folder.
type InstallerConfig struct {
	ProductName       string `yaml:"product_name"`
	ExeName           string `yaml:"exe_name"`
	InstallDir        string `yaml:"install_dir"`
	ShortcutName      string `yaml:"shortcut_name"`
	DesktopShortcut   bool   `yaml:"desktop_shortcut"`
	StartMenuShortcut bool   `yaml:"start_menu_shortcut"`
	// MakensisPath overrides the installer compiler location.
	MakensisPath string `yaml:"makensis_path"`
}

const installerScriptTmpl = `!define PRODUCT_NAME "{{.ProductName}}"
!define PRODUCT_VERSION "{{.Version}}"

Name "${PRODUCT_NAME}"
OutFile "{{.OutFile}}"
InstallDir "{{.InstallDir}}"
RequestExecutionLevel admin
SetCompressor /SOLID lzma

Section "Install"
    SetOutPath "$INSTDIR"
    File /r "{{.FolderName}}\*.*"
{{- if .StartMenuShortcut}}
    CreateDirectory "$SMPROGRAMS\{{.ShortcutName}}"
    CreateShortCut "$SMPROGRAMS\{{.ShortcutName}}\{{.ShortcutName}}.lnk" "$INSTDIR\{{.ExeName}}"
{{- end}}
{{- if .DesktopShortcut}}
    CreateShortCut "$DESKTOP\{{.ShortcutName}}.lnk" "$INSTDIR\{{.ExeName}}"
{{- end}}
    WriteUninstaller "$INSTDIR\uninstall.exe"
SectionEnd

Section "Uninstall"
{{- if .StartMenuShortcut}}
    RMDir /r "$SMPROGRAMS\{{.ShortcutName}}"
{{- end}}
{{- if .DesktopShortcut}}
    Delete "$DESKTOP\{{.ShortcutName}}.lnk"
{{- end}}
    RMDir /r "$INSTDIR"
SectionEnd
`

type installerScriptData struct {
	ProductName  string
	Version      string
	OutFile      string
	InstallDir   string
	FolderName   string
	ExeName      string
	ShortcutName string
	DesktopShortcut   bool
	StartMenuShortcut bool
}

// WriteInstallerScript synthesizes the .nsi script for a completed release
// folder and returns its path. The script lands next to the folder so the
// installer compiler resolves the payload by relative name.
func WriteInstallerScript(folder string, cfg *InstallerConfig, version string) (string, error) {
	data := installerScriptData{
		ProductName:  cfg.ProductName,
		Version:      version,
		OutFile:      filepath.Base(folder) + "-setup.exe",
		InstallDir:   cfg.InstallDir,
		FolderName:   filepath.Base(folder),
		ExeName:      cfg.ExeName,
		ShortcutName: cfg.ShortcutName,
		DesktopShortcut:   cfg.DesktopShortcut,
		StartMenuShortcut: cfg.StartMenuShortcut,
	}
	if data.ProductName == "" {
		return "", errs.Validationf("installer product_name is required")
	}
	if data.ExeName == "" {
		return "", errs.Validationf("installer exe_name is required")
	}
	if data.Version == "" {
		data.Version = "1.0"
	}
	if data.InstallDir == "" {
		data.InstallDir = `$PROGRAMFILES\` + data.ProductName
	}
	if data.ShortcutName == "" {
		data.ShortcutName = data.ProductName
	}

	script := execTextTemplate(installerScriptTmpl, data)
	path := folder + ".nsi"
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// BuildInstaller synthesizes the script and compiles it with makensis,
// producing <folder>-setup.exe next to the release folder.
func BuildInstaller(ctx context.Context, folder string, cfg *InstallerConfig, version string) (string, error) {
	scriptPath, err := WriteInstallerScript(folder, cfg, version)
	if err != nil {
		return "", err
	}

	makensis := cfg.MakensisPath
	if makensis == "" {
		makensis = "makensis"
	}
	logu.Logf("> %s %s\n", makensis, scriptPath)
	cmd := exec.CommandContext(ctx, makensis, scriptPath)
	cmd.Dir = filepath.Dir(folder)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", errs.Toolf("makensis", out.String(), "installer build failed: %v", err)
	}
	return strings.TrimSuffix(folder, string(filepath.Separator)) + "-setup.exe", nil
}

// execTextTemplate renders a template that is known good at compile time.
func execTextTemplate(tmplText string, data any) string {
	tmpl := template.Must(template.New("").Parse(tmplText))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String()
}
