// Package apk synthesizes the Android manifest and resource table for one
// export and drives the vendor packaging tools (aapt2, jarsigner, zipalign)
// to assemble a signed, aligned APK.
package apk

import (
	"strconv"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
	"agkbuild/internal/project"
)

// Permission bits as stored in the project's permission_flags setting.
const (
	maskWrite       = 0x001
	maskInternet    = 0x002
	maskWake        = 0x004
	maskGPS         = 0x008
	maskIAP         = 0x010
	maskExpansion   = 0x020
	maskLocation    = 0x040
	maskPush        = 0x080
	maskCamera      = 0x100
	maskVibrate     = 0x200
	maskRecordAudio = 0x400
)

// Permissions is the decoded set of requested Android permissions. Some of
// them only take effect on the Google variant; see BuildManifest.
type Permissions struct {
	ExternalStorage bool
	Internet        bool
	Wake            bool
	LocationFine    bool
	LocationCoarse  bool
	Billing         bool
	Expansion       bool
	Push            bool
	Camera          bool
	Vibrate         bool
	RecordAudio     bool
}

// DecodePermissions expands the stored bitmask into named flags.
func DecodePermissions(mask int) Permissions {
	return Permissions{
		ExternalStorage: mask&maskWrite != 0,
		Internet:        mask&maskInternet != 0,
		Wake:            mask&maskWake != 0,
		LocationFine:    mask&maskGPS != 0,
		LocationCoarse:  mask&maskLocation != 0,
		Billing:         mask&maskIAP != 0,
		Expansion:       mask&maskExpansion != 0,
		Push:            mask&maskPush != 0,
		Camera:          mask&maskCamera != 0,
		Vibrate:         mask&maskVibrate != 0,
		RecordAudio:     mask&maskRecordAudio != 0,
	}
}

// Orientation is the screen orientation choice stored in the project file.
type Orientation int

const (
	OrientationLandscape Orientation = 6
	OrientationPortrait  Orientation = 7
	OrientationAll       Orientation = 10
)

// decodeOrientation maps the stored index onto an orientation; out-of-range
// values mean all orientations.
func decodeOrientation(index int) Orientation {
	switch index {
	case 0:
		return OrientationLandscape
	case 1:
		return OrientationPortrait
	default:
		return OrientationAll
	}
}

// ManifestName returns the android:screenOrientation value.
func (o Orientation) ManifestName() string {
	switch o {
	case OrientationLandscape:
		return "sensorLandscape"
	case OrientationPortrait:
		return "sensorPortrait"
	default:
		return "fullSensor"
	}
}

// ARCore modes stored in the project file.
const (
	ARCoreNone     = 0
	ARCoreOptional = 1
	ARCoreRequired = 2
)

// sdkAPILevels maps the project's sdk_version index to an Android API
// level. Index 0 is reserved and invalid.
var sdkAPILevels = []int{0, 16, 17, 18, 19, 21, 22, 23, 24, 25, 26, 27, 28}

// Settings is the resolved bag of Android export settings for one target.
type Settings struct {
	Type        platform.APKType
	AppName     string
	PackageName string

	AppIcon   string
	NotifIcon string
	OuyaIcon  string

	FirebaseConfig string
	Orientation    Orientation
	ARCore         int
	SDKVersion     int // Android API level

	URLScheme  string
	DeepLink   string
	PlayAppID  string
	AdMobAppID string

	Permissions Permissions

	KeystoreFile     string
	KeystorePassword string
	AliasName        string
	AliasPassword    string

	// VersionName is the human-readable version string; BuildNumber is the
	// integer version code.
	VersionName string
	BuildNumber int
}

// ResolveSettings layers per-target overrides over the project's stored
// apk_settings section. Override values win; both use "apk_"-prefixed keys
// in the overrides map. Every required key must resolve or the export
// fails before anything is staged.
func ResolveSettings(p *project.Project, overrides map[string]string) (*Settings, error) {
	get := func(name string) (string, error) {
		if v, ok := overrides["apk_"+name]; ok {
			return v, nil
		}
		return p.Get("apk_settings", name)
	}
	getInt := func(name string) (int, error) {
		v, err := get(name)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errs.Configf("apk setting %q is not a number: %q", name, v)
		}
		return n, nil
	}

	s := &Settings{}
	var err error

	appType, err := getInt("app_type")
	if err != nil {
		return nil, err
	}
	s.Type = platform.APKType(appType)
	if !s.Type.Valid() {
		return nil, errs.Configf("unknown apk app_type %d", appType)
	}

	stringFields := []struct {
		name string
		dst  *string
	}{
		{"app_name", &s.AppName},
		{"package_name", &s.PackageName},
		{"app_icon_path", &s.AppIcon},
		{"notif_icon_path", &s.NotifIcon},
		{"ouya_icon_path", &s.OuyaIcon},
		{"firebase_config_path", &s.FirebaseConfig},
		{"url_scheme", &s.URLScheme},
		{"deep_link", &s.DeepLink},
		{"play_app_id", &s.PlayAppID},
		{"admob_app_id", &s.AdMobAppID},
		{"keystore_path", &s.KeystoreFile},
		{"version_name", &s.VersionName},
		{"alias", &s.AliasName},
	}
	for _, f := range stringFields {
		if *f.dst, err = get(f.name); err != nil {
			return nil, err
		}
	}

	orientation, err := getInt("orientation")
	if err != nil {
		return nil, err
	}
	s.Orientation = decodeOrientation(orientation)

	if s.ARCore, err = getInt("arcore"); err != nil {
		return nil, err
	}

	sdkIndex, err := getInt("sdk_version")
	if err != nil {
		return nil, err
	}
	if sdkIndex <= 0 || sdkIndex >= len(sdkAPILevels) {
		return nil, errs.Validationf("invalid sdk_version")
	}
	s.SDKVersion = sdkAPILevels[sdkIndex]

	flags, err := getInt("permission_flags")
	if err != nil {
		return nil, err
	}
	s.Permissions = DecodePermissions(flags)

	if s.BuildNumber, err = getInt("version_number"); err != nil {
		return nil, err
	}

	// Passwords are never stored in the project file.
	s.KeystorePassword = overrides["apk_keystore_password"]
	s.AliasPassword = overrides["apk_alias_password"]
	return s, nil
}

// Feature inclusion is always the AND of "feature requested" and "variant
// supports the feature"; the two are never evaluated independently.

func (s *Settings) includeFirebase() bool {
	return s.FirebaseConfig != "" && (s.Type == platform.APKGoogle || s.Type == platform.APKAmazon)
}

func (s *Settings) includePushNotify() bool {
	return s.Permissions.Push && s.Type == platform.APKGoogle
}

func (s *Settings) includeGooglePlay() bool {
	return s.PlayAppID != "" && s.Type == platform.APKGoogle
}

func (s *Settings) includeAdMob() bool {
	return s.AdMobAppID != "" && s.Type == platform.APKGoogle
}
