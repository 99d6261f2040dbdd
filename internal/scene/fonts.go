package scene

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds the faces used by title cards. Sources are safe for concurrent use.
type Fonts struct {
	Regular *text.FontSource
	Bold    *text.FontSource
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     *Fonts
	defaultFontsErr  error
)

// DefaultFonts returns the embedded Go fonts.
func DefaultFonts() (*Fonts, error) {
	defaultFontsOnce.Do(func() {
		regular, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			defaultFontsErr = fmt.Errorf("regular font: %w", err)
			return
		}
		bold, err := text.NewFontSource(gobold.TTF)
		if err != nil {
			defaultFontsErr = fmt.Errorf("bold font: %w", err)
			return
		}
		defaultFonts = &Fonts{Regular: regular, Bold: bold}
	})
	return defaultFonts, defaultFontsErr
}

// LoadFonts reads TTF/OTF files. An empty path keeps the embedded face for that weight.
func LoadFonts(regularPath, boldPath string) (*Fonts, error) {
	base, err := DefaultFonts()
	if err != nil {
		return nil, err
	}
	f := *base
	if regularPath != "" {
		if f.Regular, err = text.NewFontSourceFromFile(regularPath); err != nil {
			return nil, err
		}
	}
	if boldPath != "" {
		if f.Bold, err = text.NewFontSourceFromFile(boldPath); err != nil {
			return nil, err
		}
	}
	return &f, nil
}
