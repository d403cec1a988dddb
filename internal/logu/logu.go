// Package logu is the progress logger for the build tool. Output goes to
// stdout; this is a single-invocation batch tool driven from a terminal or
// CI log, so plain formatted prints are the whole story.
package logu

import "fmt"

// Verbose enables Vlogf output.
var Verbose bool

// Logf prints a progress message.
func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
}

// Vlogf prints a progress message only in verbose mode.
func Vlogf(s string, args ...any) {
	if !Verbose {
		return
	}
	Logf(s, args...)
}
