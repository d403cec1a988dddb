package apk

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kjk/common/u"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
)

var (
	appNameBadRe     = regexp.MustCompile(`[^-A-Za-z0-9 _]`)
	packageBadRe     = regexp.MustCompile(`[^A-Za-z0-9._]`)
	packageBadDotRe  = regexp.MustCompile(`\.[^A-Za-z]`)
	urlSchemeBadRe   = regexp.MustCompile(`[:/]`)
	deepLinkRe       = regexp.MustCompile(`^https?://`)
	versionNameBadRe = regexp.MustCompile(`[^0-9.]`)
)

// Validate applies the static rule table to the resolved settings. It runs
// before anything outside the scratch workspace is touched, so a failure
// leaves the project and release tree unchanged.
func (s *Settings) Validate() error {
	if s.AppName == "" {
		return errs.Validationf("you must enter an app name")
	}
	if len(s.AppName) > 30 {
		return errs.Validationf("app name must be less than 30 characters")
	}
	if appNameBadRe.MatchString(s.AppName) {
		return errs.Validationf("app name contains invalid characters, it must not contain quotes or < > characters")
	}

	if s.PackageName == "" {
		return errs.Validationf("you must enter a package name")
	}
	if len(s.PackageName) > 100 {
		return errs.Validationf("package name must be less than 100 characters")
	}
	if !strings.Contains(s.PackageName, ".") {
		return errs.Validationf("package name must contain at least one dot character")
	}
	first := s.PackageName[0]
	if !('a' <= first && first <= 'z' || 'A' <= first && first <= 'Z') {
		return errs.Validationf("package name must begin with a letter")
	}
	if strings.HasSuffix(s.PackageName, ".") {
		return errs.Validationf("package name must not end with a dot")
	}
	if packageBadDotRe.MatchString(s.PackageName) {
		return errs.Validationf("package name invalid, a dot must be followed by a letter")
	}
	if packageBadRe.MatchString(s.PackageName) {
		return errs.Validationf("package name contains invalid characters, must be A-Z 0-9 . and underscore only")
	}

	if s.URLScheme != "" && urlSchemeBadRe.MatchString(s.URLScheme) {
		return errs.Validationf("URL scheme must not contain : or /")
	}
	if s.DeepLink != "" {
		if !deepLinkRe.MatchString(s.DeepLink) {
			return errs.Validationf("deep link must start with http:// or https://")
		}
		if link := parseDeepLink(s.DeepLink); link == nil || link.Host == "" {
			return errs.Validationf("deep link must have a domain after http:// or https://")
		}
	}

	if err := checkIcon(s.AppIcon, "app icon"); err != nil {
		return err
	}
	if err := checkIcon(s.NotifIcon, "notification icon"); err != nil {
		return err
	}
	if s.Type == platform.APKOuya {
		if s.OuyaIcon == "" {
			return errs.Validationf("you must select an Ouya large icon")
		}
		if err := checkIcon(s.OuyaIcon, "Ouya large icon"); err != nil {
			return err
		}
	}

	if s.FirebaseConfig != "" {
		if !strings.HasSuffix(s.FirebaseConfig, ".json") {
			return errs.Validationf("Google services config file must be a .json file")
		}
		if !u.PathExists(s.FirebaseConfig) {
			return errs.Validationf("could not find Google services config file")
		}
	}

	if versionNameBadRe.MatchString(s.VersionName) {
		return errs.Validationf("version name contains invalid characters, must be 0-9 and . only")
	}

	if s.KeystoreFile != "" {
		if !u.PathExists(s.KeystoreFile) {
			return errs.Validationf("could not find keystore file location")
		}
		if s.KeystorePassword == "" {
			return errs.Validationf("you must enter your keystore password when using your own keystore")
		}
		if strings.Contains(s.KeystorePassword, `"`) {
			return errs.Validationf("keystore password cannot contain double quotes")
		}
	}
	if s.AliasName != "" {
		if s.AliasPassword == "" {
			return errs.Validationf("you must enter your alias password when using a custom alias")
		}
		if strings.Contains(s.AliasPassword, `"`) {
			return errs.Validationf("alias password cannot contain double quotes")
		}
	}

	// Push on Android goes through Firebase, so requesting it without a
	// config file can never produce a working package.
	if s.includePushNotify() && !s.includeFirebase() {
		return errs.Validationf("push notifications on Android now use Firebase, so you must include a Firebase config file to use them")
	}
	return nil
}

func checkIcon(path, what string) error {
	if path == "" {
		return nil
	}
	if !strings.HasSuffix(path, ".png") {
		return errs.Validationf("%s must be a PNG file", what)
	}
	if !u.PathExists(path) {
		return errs.Validationf("could not find %s location", what)
	}
	return nil
}

// validateOutputFile checks the computed output location before any
// directory is created for it.
func validateOutputFile(path string) error {
	if path == "" {
		return errs.Validationf("you must choose an output location to save your APK")
	}
	if !strings.Contains(filepath.Base(path), ".") {
		return errs.Validationf("the output location must be a file not a directory")
	}
	return nil
}
