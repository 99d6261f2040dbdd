package live

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/skip2/go-qrcode"
)

// LoadLogo reads the logo file and shrinks it to at most a fifth of the
// screen width. Without a path a QR code of fallback is used instead.
func LoadLogo(path, fallback string, screen image.Point) (image.Image, error) {
	var img image.Image
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if img, _, err = image.Decode(f); err != nil {
			return nil, fmt.Errorf("decode logo %s: %w", path, err)
		}
	} else {
		if fallback == "" {
			return nil, nil
		}
		q, err := qrcode.New(fallback, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr logo: %w", err)
		}
		img = q.Image(max(screen.X/10, 64))
	}

	maxW := screen.X / 5
	if b := img.Bounds(); maxW > 0 && b.Dx() > maxW {
		h := max(1, b.Dy()*maxW/b.Dx())
		return transform.Resize(img, maxW, h, transform.Linear), nil
	}
	return img, nil
}
