// Package platform names the export targets and architectures a build can
// request. Targets are kept as explicit sets with membership tests rather
// than raw bit flags.
package platform

import (
	"fmt"
	"slices"
	"strings"
)

// Platform is one export target.
type Platform int

const (
	Windows Platform = iota
	Linux
	Android // exports the APK type selected in the project file
	HTML5
	GoogleAPK
	AmazonAPK
	OuyaAPK
)

// ExportOrder is the fixed order in which requested targets are exported.
var ExportOrder = []Platform{Windows, Linux, Android, HTML5, GoogleAPK, AmazonAPK, OuyaAPK}

var platformNames = map[Platform]string{
	Windows:   "windows",
	Linux:     "linux",
	Android:   "android",
	HTML5:     "html5",
	GoogleAPK: "google_apk",
	AmazonAPK: "amazon_apk",
	OuyaAPK:   "ouya_apk",
}

func (p Platform) String() string {
	if s, ok := platformNames[p]; ok {
		return s
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// IsDesktop reports whether the architecture selection applies to p.
// Mobile and web targets ignore it.
func (p Platform) IsDesktop() bool {
	return p == Windows || p == Linux
}

// Set is an ordered set of export targets.
type Set []Platform

// Has reports whether p is a member of the set.
func (s Set) Has(p Platform) bool {
	return slices.Contains(s, p)
}

// Add returns the set with p added; adding an existing member is a no-op.
func (s Set) Add(p Platform) Set {
	if s.Has(p) {
		return s
	}
	return append(s, p)
}

// ParseSet converts build-file platform names into a Set.
func ParseSet(names []string) (Set, error) {
	var set Set
	for _, name := range names {
		found := false
		for p, s := range platformNames {
			if s == strings.ToLower(strings.TrimSpace(name)) {
				set = set.Add(p)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown platform %q", name)
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no platforms selected")
	}
	return set, nil
}

// ArchSet selects the desktop architectures to export. The zero value means
// "unspecified"; desktop exports default it to 32-bit.
type ArchSet struct {
	X86 bool
	X64 bool
}

// DefaultArch is used when a desktop export does not name an architecture.
var DefaultArch = ArchSet{X86: true}

// IsZero reports whether no architecture is selected.
func (a ArchSet) IsZero() bool { return !a.X86 && !a.X64 }

// Tokens returns the folder-name tokens for the selected architectures in
// fixed enumeration order, 32-bit before 64-bit.
func (a ArchSet) Tokens() []string {
	var t []string
	if a.X86 {
		t = append(t, "x86")
	}
	if a.X64 {
		t = append(t, "x64")
	}
	return t
}

func (a ArchSet) String() string {
	return strings.Join(a.Tokens(), "_")
}

// ParseArchSet converts build-file architecture names into an ArchSet.
func ParseArchSet(names []string) (ArchSet, error) {
	var a ArchSet
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "x86", "32", "32-bit":
			a.X86 = true
		case "x64", "64", "64-bit":
			a.X64 = true
		default:
			return ArchSet{}, fmt.Errorf("unknown architecture %q", name)
		}
	}
	return a, nil
}

// APKType is one of the three Android packaging variants. The variants share
// one source tree but differ in feature availability; only the Google variant
// supports push notifications, billing and analytics.
type APKType int

const (
	APKGoogle APKType = 0
	APKAmazon APKType = 1
	APKOuya   APKType = 2
)

var apkTypeNames = []string{"Google", "Amazon", "Ouya"}

// Name returns the display name used in output file names ("Google",
// "Amazon", "Ouya").
func (t APKType) Name() string {
	if t < APKGoogle || t > APKOuya {
		return fmt.Sprintf("apk(%d)", int(t))
	}
	return apkTypeNames[t]
}

// Valid reports whether t is one of the three known variants.
func (t APKType) Valid() bool { return t >= APKGoogle && t <= APKOuya }
