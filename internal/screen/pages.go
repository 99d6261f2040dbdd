package screen

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// pages is a document rendered one page at a time.
type pages interface {
	PageCount() int
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

type pdfPages struct {
	doc *fitz.Document
}

func newPDFPages(path string) (*pdfPages, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &pdfPages{doc: doc}, nil
}

func (p *pdfPages) PageCount() int { return p.doc.NumPage() }

func (p *pdfPages) RenderPage(index int, dpi int) (image.Image, error) {
	return p.doc.ImageDPI(index, float64(dpi))
}

func (p *pdfPages) Close() error { return p.doc.Close() }

type imagePages struct {
	paths []string
}

func newImagePages(path string) (*imagePages, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return &imagePages{paths: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("нет изображений в %s", path)
	}
	sort.Strings(paths)
	return &imagePages{paths: paths}, nil
}

func (s *imagePages) PageCount() int { return len(s.paths) }

func (s *imagePages) RenderPage(index int, _ int) (image.Image, error) {
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func (s *imagePages) Close() error { return nil }
