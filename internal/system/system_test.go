package system

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePoolReturnsClearedBuffers(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 8, 8)

	img := p.Get(rect)
	require.Equal(t, rect, img.Rect)
	img.Set(3, 3, color.RGBA{255, 0, 0, 255})
	p.Put(img)

	again := p.Get(rect)
	for i, b := range again.Pix {
		if b != 0 {
			t.Fatalf("byte %d not cleared: %d", i, b)
		}
	}

	gets, allocs := p.Stats()
	assert.Equal(t, uint64(2), gets)
	assert.GreaterOrEqual(t, allocs, uint64(1))
}

func TestImagePoolIgnoresUnknownSizes(t *testing.T) {
	p := NewImagePool()
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	p.Put(nil)
	_, allocs := p.Stats()
	assert.Zero(t, allocs)
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "clips"), ExpandPath("~/clips"))
	assert.Equal(t, "/tmp/x", ExpandPath("/tmp/x"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestDefaultQuality(t *testing.T) {
	tests := []struct {
		encoder string
		want    int
	}{
		{"h264_videotoolbox", 75},
		{"h264_nvenc", 28},
		{"libx264", 23},
	}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultQuality(tt.encoder))
		})
	}
}

func TestDefaultWorkersPositive(t *testing.T) {
	assert.Positive(t, DefaultWorkers())
}
