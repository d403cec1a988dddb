package apk

import (
	"os"
	"regexp"

	json "github.com/goccy/go-json"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
)

// stringEntryRe builds the substitution pattern for one values.xml string
// entry. The entry text is replaced in place; the tags stay as they are.
func stringEntryRe(name string, translatable bool) *regexp.Regexp {
	attrs := ""
	if translatable {
		attrs = ` translatable="false"`
	}
	return regexp.MustCompile(`(<string name="` + name + `"` + attrs + `>)[^<]+(</string>)`)
}

// substituteEntry replaces the body of one string entry. Zero matches means
// the resource template is corrupt and the synthesis fails.
func substituteEntry(contents string, re *regexp.Regexp, value, entry string) (string, error) {
	if !re.MatchString(contents) {
		return "", errs.Synthesisf("could not find %s entry in values.xml file", entry)
	}
	return re.ReplaceAllStringFunc(contents, func(m string) string {
		sub := re.FindStringSubmatch(m)
		return sub[1] + value + sub[2]
	}), nil
}

var (
	appNameEntryRe      = stringEntryRe("app_name", false)
	gamesAppIDEntryRe   = stringEntryRe("games_app_id", false)
	admobAppIDEntryRe   = stringEntryRe("admob_app_id", false)
	senderIDEntryRe     = stringEntryRe("gcm_defaultSenderId", true)
	firebaseURLEntryRe  = stringEntryRe("firebase_database_url", true)
	googleAppIDEntryRe  = stringEntryRe("google_app_id", true)
	googleAPIKeyEntryRe = stringEntryRe("google_api_key", true)
	crashAPIKeyEntryRe  = stringEntryRe("google_crash_reporting_api_key", true)
)

// BuildResources produces the final values.xml text: the app name, the
// optional Games/AdMob app ids, and the Firebase values read from the
// companion JSON config file.
func BuildResources(contents string, s *Settings) (string, error) {
	contents, err := substituteEntry(contents, appNameEntryRe, s.AppName, "app_name")
	if err != nil {
		return "", err
	}

	if s.Type == platform.APKGoogle && s.PlayAppID != "" {
		contents, err = substituteEntry(contents, gamesAppIDEntryRe, s.PlayAppID, "games_app_id")
		if err != nil {
			return "", err
		}
	}
	if s.Type == platform.APKGoogle && s.AdMobAppID != "" {
		contents, err = substituteEntry(contents, admobAppIDEntryRe, s.AdMobAppID, "admob_app_id")
		if err != nil {
			return "", err
		}
	}

	if s.includeFirebase() {
		contents, err = injectFirebaseValues(contents, s)
		if err != nil {
			return "", err
		}
	}
	return contents, nil
}

// firebaseConfig mirrors the slice of a google-services.json file this tool
// reads. The config may list several client apps; only the entry matching
// the export's package name is usable.
type firebaseConfig struct {
	ProjectInfo struct {
		ProjectNumber string `json:"project_number"`
		FirebaseURL   string `json:"firebase_url"`
	} `json:"project_info"`
	Clients []firebaseClient `json:"client"`
}

type firebaseClient struct {
	ClientInfo struct {
		MobileSDKAppID    string `json:"mobilesdk_app_id"`
		AndroidClientInfo struct {
			PackageName string `json:"package_name"`
		} `json:"android_client_info"`
	} `json:"client_info"`
	APIKeys []struct {
		CurrentKey string `json:"current_key"`
	} `json:"api_key"`
}

// injectFirebaseValues locates four values by key path in the Firebase
// config and substitutes them into the corresponding resource strings.
// Every missing key path is reported by name.
func injectFirebaseValues(contents string, s *Settings) (string, error) {
	data, err := os.ReadFile(s.FirebaseConfig)
	if err != nil {
		return "", err
	}
	var config firebaseConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return "", errs.ConfigWrap(err, "malformed Firebase config file %q", s.FirebaseConfig)
	}

	if config.ProjectInfo.ProjectNumber == "" {
		return "", errs.Synthesisf("could not find project_number entry in Firebase config file")
	}
	contents, err = substituteEntry(contents, senderIDEntryRe, config.ProjectInfo.ProjectNumber, "gcm_defaultSenderId")
	if err != nil {
		return "", err
	}

	if config.ProjectInfo.FirebaseURL == "" {
		return "", errs.Synthesisf("could not find firebase_url entry in Firebase config file")
	}
	contents, err = substituteEntry(contents, firebaseURLEntryRe, config.ProjectInfo.FirebaseURL, "firebase_database_url")
	if err != nil {
		return "", err
	}

	// The config may contain several Android apps; only the one whose
	// package name matches this export will work.
	var client *firebaseClient
	for i := range config.Clients {
		if config.Clients[i].ClientInfo.AndroidClientInfo.PackageName == s.PackageName {
			client = &config.Clients[i]
			break
		}
	}
	if client == nil {
		return "", errs.Synthesisf("could not find client entry for android package_name %q in the Firebase config file", s.PackageName)
	}
	if client.ClientInfo.MobileSDKAppID == "" {
		return "", errs.Synthesisf("could not find mobilesdk_app_id entry for android package_name %q in the Firebase config file", s.PackageName)
	}
	contents, err = substituteEntry(contents, googleAppIDEntryRe, client.ClientInfo.MobileSDKAppID, "google_app_id")
	if err != nil {
		return "", err
	}

	if len(client.APIKeys) == 0 || client.APIKeys[0].CurrentKey == "" {
		return "", errs.Synthesisf("could not find current_key entry for android package_name %q in the Firebase config file", s.PackageName)
	}
	currentKey := client.APIKeys[0].CurrentKey
	contents, err = substituteEntry(contents, googleAPIKeyEntryRe, currentKey, "google_api_key")
	if err != nil {
		return "", err
	}
	return substituteEntry(contents, crashAPIKeyEntryRe, currentKey, "google_crash_reporting_api_key")
}
