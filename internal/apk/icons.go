package apk

import (
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"agkbuild/internal/errs"
	"agkbuild/internal/platform"
)

// iconSet rescales the project's icon PNGs into the density folders of the
// staged resource tree and queues each result for compilation.
type iconSet struct {
	workspace string // scratch workspace holding resOrig/
	batch     *aapt2Batch
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, errs.ConfigWrap(err, "could not decode PNG %q", path)
	}
	return img, nil
}

// scaleTo writes img scaled to w x h into resOrig/<folder>/<name> and
// queues it for compilation.
func (ic *iconSet) scaleTo(img image.Image, w, h int, folder, name string) error {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	path := filepath.Join(ic.workspace, "resOrig", folder, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ic.batch.compileFile("resOrig/" + folder + "/" + name)
	return nil
}

// densityFolders returns the per-density drawable folders; the Ouya
// template tree uses the -v4 suffixed names.
func densityFolders(t platform.APKType) (xhdpi, hdpi, mdpi, ldpi string) {
	if t == platform.APKOuya {
		return "drawable-xhdpi-v4", "drawable-hdpi-v4", "drawable-mdpi-v4", "drawable-ldpi-v4"
	}
	return "drawable-xhdpi", "drawable-hdpi", "drawable-mdpi", "drawable-ldpi"
}

// stageAppIcon rescales the launcher icon into every density the variant
// ships.
func (ic *iconSet) stageAppIcon(s *Settings) error {
	if s.AppIcon == "" {
		return nil
	}
	img, err := loadPNG(s.AppIcon)
	if err != nil {
		return err
	}
	if s.Type == platform.APKGoogle || s.Type == platform.APKAmazon {
		if err := ic.scaleTo(img, 192, 192, "drawable-xxxhdpi", "icon.png"); err != nil {
			return err
		}
		if err := ic.scaleTo(img, 144, 144, "drawable-xxhdpi", "icon.png"); err != nil {
			return err
		}
	}
	xhdpi, hdpi, mdpi, ldpi := densityFolders(s.Type)
	name := "icon.png"
	if s.Type == platform.APKOuya {
		name = "app_icon.png"
	}
	for _, step := range []struct {
		size   int
		folder string
	}{{96, xhdpi}, {72, hdpi}, {48, mdpi}, {36, ldpi}} {
		if err := ic.scaleTo(img, step.size, step.size, step.folder, name); err != nil {
			return err
		}
	}
	return nil
}

// stageNotifIcon rescales the notification icon; only the Google and
// Amazon variants carry one.
func (ic *iconSet) stageNotifIcon(s *Settings) error {
	if s.NotifIcon == "" || s.Type == platform.APKOuya {
		return nil
	}
	img, err := loadPNG(s.NotifIcon)
	if err != nil {
		return err
	}
	xhdpi, hdpi, mdpi, ldpi := densityFolders(s.Type)
	for _, step := range []struct {
		size   int
		folder string
	}{
		{96, "drawable-xxxhdpi"},
		{72, "drawable-xxhdpi"},
		{48, xhdpi},
		{36, hdpi},
		{24, mdpi},
		{24, ldpi},
	} {
		if err := ic.scaleTo(img, step.size, step.size, step.folder, "icon_white.png"); err != nil {
			return err
		}
	}
	return nil
}

// stageOuyaIcon copies the large icon verbatim (its size is fixed by the
// store) and derives the small tile from it.
func (ic *iconSet) stageOuyaIcon(s *Settings) error {
	if s.Type != platform.APKOuya {
		return nil
	}
	img, err := loadPNG(s.OuyaIcon)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	if bounds.Dx() != 732 || bounds.Dy() != 412 {
		return errs.Validationf("Ouya large icon must be 732x412 pixels")
	}
	data, err := os.ReadFile(s.OuyaIcon)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(ic.workspace, "resOrig", "drawable-xhdpi-v4", "ouya_icon.png"), data, 0644); err != nil {
		return err
	}
	ic.batch.compileFile("resOrig/drawable-xhdpi-v4/ouya_icon.png")

	return ic.scaleTo(img, 320, 180, "drawable", "icon.png")
}
