package tasks

import (
	"os"
	"path/filepath"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"agkbuild/internal/logu"
)

// noteSources are tried in order when rendering release notes.
var noteSources = []string{"NOTES.md", "README.md"}

// RenderReleaseNotes renders the project's release notes into notes.html
// inside the release folder. A project without notes is fine; the first
// source file found wins.
func RenderReleaseNotes(folder, projectDir string) (string, error) {
	var src string
	for _, name := range noteSources {
		candidate := filepath.Join(projectDir, name)
		if _, err := os.Stat(candidate); err == nil {
			src = candidate
			break
		}
	}
	if src == "" {
		return "", nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	html := markdown.ToHTML(data, p, renderer)

	out := filepath.Join(folder, "notes.html")
	if err := os.WriteFile(out, html, 0644); err != nil {
		return "", err
	}
	logu.Vlogf("Rendered %s => %s\n", src, out)
	return out, nil
}
