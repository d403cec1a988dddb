package apk

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"agkbuild/internal/errs"
	"agkbuild/internal/logu"
)

// aapt2Batch collects compile/link directives and hands them to the
// resource packager as one stdin script. The tool prints status tokens and
// errors on stderr; the literal lines "Error" and "Done" are benign status
// output, anything else is fatal, and a bare "Error" line still means an
// unspecified failure. This literal matching mirrors the tool's observed
// behavior; it has no documented error contract.
type aapt2Batch struct {
	path  string
	dir   string
	lines []string
}

func newAapt2Batch(path, dir string) *aapt2Batch {
	return &aapt2Batch{path: strings.ReplaceAll(path, `\`, `/`), dir: dir}
}

// add appends one directive, converting separators for the host platform.
func (b *aapt2Batch) add(s string) {
	if runtime.GOOS == "windows" {
		s = strings.ReplaceAll(s, "/", `\`)
	}
	b.lines = append(b.lines, s)
}

// addRaw appends one directive without separator conversion.
func (b *aapt2Batch) addRaw(s string) {
	b.lines = append(b.lines, s)
}

// compileFile queues a resource file (relative to the workspace) for
// compilation into the merged-resources directory.
func (b *aapt2Batch) compileFile(relPath string) {
	b.add("compile\n-o\nresMerged\n" + relPath + "\n\n")
}

// run feeds the collected directives to the packager in one batch and
// classifies its stderr output.
func (b *aapt2Batch) run(ctx context.Context) error {
	if len(b.lines) == 0 {
		return errs.Validationf("packaging tool has no commands to run")
	}
	script := strings.Join(b.lines, "")
	b.lines = nil

	logu.Vlogf("> aapt2 m (batch of %d bytes)\n", len(script))
	cmd := exec.CommandContext(ctx, b.path, "m")
	cmd.Dir = b.dir
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	_ = cmd.Run() // the exit status is unreliable; stderr is the signal

	raw := strings.TrimSpace(stderr.String())
	stderrLines := strings.Split(raw, "\n")
	var remaining []string
	sawError := false
	for _, line := range stderrLines {
		switch line {
		case "Done":
		case "Error":
			sawError = true
		default:
			if line != "" {
				remaining = append(remaining, line)
			}
		}
	}
	if len(remaining) > 0 {
		return errs.Toolf("aapt2", strings.Join(remaining, "\n"), "packaging tool reported the following error(s)")
	}
	if sawError {
		return errs.Toolf("aapt2", raw, "packaging tool had an unspecified error")
	}
	return nil
}
