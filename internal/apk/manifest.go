package apk

import (
	"fmt"
	"regexp"
	"strings"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
)

// deepLink is a parsed deep-link URL.
type deepLink struct {
	Scheme string
	Host   string
	Path   string
}

var deepLinkPartsRe = regexp.MustCompile(`^(.+)://([^/]+)(/.+)?$`)

func parseDeepLink(link string) *deepLink {
	m := deepLinkPartsRe.FindStringSubmatch(link)
	if m == nil {
		return nil
	}
	return &deepLink{Scheme: m[1], Host: m[2], Path: m[3]}
}

const (
	intentFiltersToken = "<!--ADDITIONAL_INTENT_FILTERS-->"
	orientationToken   = `screenOrientation="fullSensor"`
	packageNameToken   = "YOUR_PACKAGE_NAME_HERE"
	applicationIDToken = "${applicationId}"
)

// BuildManifest produces the final AndroidManifest.xml text for one export.
// templateBody is the manifest from the platform template tree; it carries
// the application element and the substitution tokens. The fixed header,
// the permission lines and the feature blocks are synthesized around it.
//
// Each conditional block is included only when the feature is requested AND
// the selected variant supports it. A token the template is expected to
// carry that matches zero times means the template is corrupt and the
// synthesis fails.
func BuildManifest(templateBody string, s *Settings) (string, error) {
	var b strings.Builder

	minSDK := 15
	if s.Type == platform.APKGoogle || s.Type == platform.APKAmazon {
		minSDK = s.SDKVersion
	}
	targetSDK := 15
	if s.Type == platform.APKGoogle {
		targetSDK = 28
	}

	fmt.Fprintf(&b, `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
      android:versionCode="%d"
      android:versionName="%s" package="%s" android:installLocation="auto">
    <uses-feature android:glEsVersion="0x00020000"></uses-feature>
    <uses-sdk android:minSdkVersion="%d" android:targetSdkVersion="%d" />

`, s.BuildNumber, s.VersionName, s.PackageName, minSDK, targetSDK)

	writePermissions(&b, s)

	if s.ARCore == ARCoreRequired {
		b.WriteString("    <uses-feature android:name=\"android.hardware.camera.ar\" android:required=\"true\" />\n")
	}

	body, err := substituteBody(templateBody, s)
	if err != nil {
		return "", err
	}
	b.WriteString(body)

	writeFeatureBlocks(&b, s)

	b.WriteString(`
    </application>
</manifest>
`)
	return b.String(), nil
}

// writePermissions emits the permission declarations in fixed order. The
// location, billing, licensing and push permissions only exist on the
// Google variant.
func writePermissions(b *strings.Builder, s *Settings) {
	perm := s.Permissions
	google := s.Type == platform.APKGoogle

	line := func(name string) {
		fmt.Fprintf(b, "    <uses-permission android:name=\"%s\" />\n", name)
	}

	if perm.ExternalStorage {
		line("android.permission.WRITE_EXTERNAL_STORAGE")
	}
	if perm.Internet {
		line("android.permission.INTERNET")
		line("android.permission.ACCESS_NETWORK_STATE")
		line("android.permission.ACCESS_WIFI_STATE")
	}
	if perm.Wake {
		line("android.permission.WAKE_LOCK")
	}
	if perm.LocationCoarse && google {
		line("android.permission.ACCESS_COARSE_LOCATION")
	}
	if perm.LocationFine && google {
		line("android.permission.ACCESS_FINE_LOCATION")
	}
	if perm.Billing && google {
		line("android.permission.BILLING")
	}
	if perm.Camera {
		line("android.permission.CAMERA")
	}
	if (s.PlayAppID != "" || perm.Push) && google {
		line("com.google.android.c2dm.permission.RECEIVE")
	}
	if perm.Push && google {
		fmt.Fprintf(b, "    <permission android:name=\"%s.permission.C2D_MESSAGE\" android:protectionLevel=\"signature\" />\n", s.PackageName)
		line(s.PackageName + ".permission.C2D_MESSAGE")
	}
	if perm.Expansion && google {
		line("android.permission.CHECK_LICENSE")
	}
	if perm.Vibrate {
		line("android.permission.VIBRATE")
	}
	if perm.RecordAudio {
		line("android.permission.RECORD_AUDIO")
	}
}

// substituteBody resolves the orientation, intent-filter and package-name
// tokens inside the template body.
func substituteBody(body string, s *Settings) (string, error) {
	if !strings.Contains(body, orientationToken) {
		return "", errs.Synthesisf("manifest template is corrupt, it is missing the %s token", orientationToken)
	}
	body = strings.ReplaceAll(body, orientationToken,
		fmt.Sprintf("screenOrientation=%q", s.Orientation.ManifestName()))

	if !strings.Contains(body, intentFiltersToken) {
		return "", errs.Synthesisf("manifest template is corrupt, it is missing the %s token", intentFiltersToken)
	}
	body = strings.ReplaceAll(body, intentFiltersToken, intentFilters(s))

	body = strings.ReplaceAll(body, packageNameToken, s.PackageName)
	body = strings.ReplaceAll(body, applicationIDToken, s.PackageName)
	return body, nil
}

func intentFilters(s *Settings) string {
	var b strings.Builder
	if s.URLScheme != "" {
		fmt.Fprintf(&b, `
    <intent-filter>
        <action android:name="android.intent.action.VIEW" />
        <category android:name="android.intent.category.DEFAULT" />
        <category android:name="android.intent.category.BROWSABLE" />
        <data android:scheme="%s" />
    </intent-filter>`, s.URLScheme)
	}
	if s.DeepLink != "" {
		if link := parseDeepLink(s.DeepLink); link != nil {
			fmt.Fprintf(&b, `
    <intent-filter>
        <action android:name="android.intent.action.VIEW" />
        <category android:name="android.intent.category.DEFAULT" />
        <category android:name="android.intent.category.BROWSABLE" />
        <data android:scheme="%s" android:host="%s"`, link.Scheme, link.Host)
			if link.Path != "" {
				fmt.Fprintf(&b, ` android:pathPrefix="%s"`, link.Path)
			}
			b.WriteString(` />
    </intent-filter>`)
		}
	}
	return b.String()
}

// writeFeatureBlocks appends the larger service/receiver declarations that
// land inside the application element, after the template body.
func writeFeatureBlocks(b *strings.Builder, s *Settings) {
	google := s.Type == platform.APKGoogle

	if s.Permissions.Expansion && google {
		b.WriteString(`
        <service android:name="com.google.android.vending.expansion.downloader.impl.DownloaderService"
            android:enabled="true"/>
        <receiver android:name="com.google.android.vending.expansion.downloader.impl.DownloaderService$AlarmReceiver"
            android:enabled="true"/>`)
	}

	if google {
		b.WriteString(`
        <activity android:name="com.google.android.gms.auth.api.signin.internal.SignInHubActivity"
            android:excludeFromRecents="true"
            android:exported="false"
            android:theme="@android:style/Theme.Translucent.NoTitleBar" />
        <service android:name="com.google.android.gms.auth.api.signin.RevocationBoundService"
            android:exported="true"
            android:permission="com.google.android.gms.auth.api.signin.permission.REVOCATION_NOTIFICATION" />`)
	}

	if s.Permissions.Billing && google {
		b.WriteString(`
        <activity android:name="com.google.android.gms.ads.purchase.InAppPurchaseActivity"
            android:theme="@style/Theme.IAPTheme" />`)
	}

	if s.includeGooglePlay() {
		b.WriteString(`
        <activity android:name="com.google.android.gms.common.api.GoogleApiActivity"
            android:exported="false"
            android:theme="@android:style/Theme.Translucent.NoTitleBar" />`)
	}

	if s.includeGooglePlay() || s.includeFirebase() || s.includePushNotify() {
		fmt.Fprintf(b, `
        <provider android:authorities="%s.firebaseinitprovider"
            android:name="com.google.firebase.provider.FirebaseInitProvider"
            android:exported="false"
            android:initOrder="100" />`, s.PackageName)
	}

	if s.includeFirebase() {
		b.WriteString(`
        <receiver
            android:name="com.google.android.gms.measurement.AppMeasurementReceiver"
            android:enabled="true"
            android:exported="false" >
        </receiver>
        <service android:name="com.google.android.gms.measurement.AppMeasurementService"
            android:enabled="true"
            android:exported="false"/>
        <service
            android:name="com.google.android.gms.measurement.AppMeasurementJobService"
            android:enabled="true"
            android:exported="false"
            android:permission="android.permission.BIND_JOB_SERVICE" />
        <service
            android:name="com.google.firebase.components.ComponentDiscoveryService"
            android:exported="false" >
            <meta-data
                android:name="com.google.firebase.components:com.google.firebase.analytics.connector.internal.AnalyticsConnectorRegistrar"
                android:value="com.google.firebase.components.ComponentRegistrar" />
            <meta-data
                android:name="com.google.firebase.components:com.google.firebase.iid.Registrar"
                android:value="com.google.firebase.components.ComponentRegistrar" />
        </service>`)
	}

	if s.includeFirebase() || s.includePushNotify() {
		b.WriteString(`
        <receiver android:name="com.google.firebase.iid.FirebaseInstanceIdReceiver"
            android:exported="true"
            android:permission="com.google.android.c2dm.permission.SEND" >
            <intent-filter>
                <action android:name="com.google.android.c2dm.intent.RECEIVE" />
            </intent-filter>
        </receiver>`)
	}

	if s.includePushNotify() {
		b.WriteString(`
        <meta-data android:name="com.google.firebase.messaging.default_notification_icon"
            android:resource="@drawable/icon_white" />
        <service android:name="com.google.firebase.messaging.FirebaseMessagingService"
            android:exported="true" >
            <intent-filter android:priority="-500" >
                <action android:name="com.google.firebase.MESSAGING_EVENT" />
            </intent-filter>
        </service>`)
	}

	if s.includeAdMob() {
		fmt.Fprintf(b, `
        <provider
            android:name="com.google.android.gms.ads.MobileAdsInitProvider"
            android:authorities="%s.mobileadsinitprovider"
            android:exported="false"
            android:initOrder="100" />`, s.PackageName)
	}

	if s.ARCore != ARCoreNone {
		mode := "required"
		if s.ARCore == ARCoreOptional {
			mode = "optional"
		}
		fmt.Fprintf(b, `
        <meta-data android:name="com.google.ar.core" android:value="%s" />
        <meta-data android:name="com.google.ar.core.min_apk_version" android:value="190519000" />
        <activity
            android:name="com.google.ar.core.InstallActivity"
            android:configChanges="keyboardHidden|orientation|screenSize"
            android:excludeFromRecents="true"
            android:exported="false"
            android:launchMode="singleTop"
            android:theme="@android:style/Theme.Material.Light.Dialog.Alert" />`, mode)
	}
}
