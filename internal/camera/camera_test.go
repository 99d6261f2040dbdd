package camera

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/ministudio/internal/gpufilter"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    gpufilter.PixelFormat
		wantErr bool
	}{
		{"", gpufilter.FormatRGBA, false},
		{"rgba", gpufilter.FormatRGBA, false},
		{"I420", gpufilter.FormatYUV420P, false},
		{"yv12", gpufilter.FormatYV12, false},
		{"NV12", gpufilter.FormatInvalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, capsFormat(got))
		})
	}
}

func TestSplitFrame_I420Padding(t *testing.T) {
	// 6x2: строки Y выровнены до 8, строки U/V (3 байта) до 4.
	data := make([]byte, 8*2+4*1*2)
	f, err := splitFrame(gpufilter.FormatYUV420P, 6, 2, data)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 4, 4}, f.Strides)
	assert.Len(t, f.Planes[0], 16)
	assert.Len(t, f.Planes[1], 4)
	assert.NotEmpty(t, f.TraceID)
	require.NoError(t, f.Validate())

	_, err = splitFrame(gpufilter.FormatYUV420P, 6, 2, data[:10])
	assert.Error(t, err)
}

func TestSplitFrame_RGBA(t *testing.T) {
	f, err := splitFrame(gpufilter.FormatRGBA, 2, 2, make([]byte, 16))
	require.NoError(t, err)
	img, err := f.ToRGBA()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Rect)

	_, err = splitFrame(gpufilter.FormatBGRA, 2, 2, make([]byte, 16))
	assert.ErrorIs(t, err, gpufilter.ErrUnsupportedFrame)
}

func TestGrabber_OfferKeepsNewest(t *testing.T) {
	g := NewGrabber(Config{Device: TestDevice, Width: 2, Height: 2}, gpufilter.Passthrough{}, func(*image.RGBA) {}, nil)
	for i := 0; i < 3; i++ {
		g.offer(gpufilter.Frame{TraceID: string(rune('a' + i))})
	}
	assert.Equal(t, uint64(2), g.Stats().Dropped)
	assert.Equal(t, "c", (<-g.frames).TraceID)
}

func TestGrabber_HandleRunsFilter(t *testing.T) {
	var got []*image.RGBA
	g := NewGrabber(Config{Width: 2, Height: 2}, gpufilter.NewVideoFilter(gpufilter.NewSoftwareDriver(), nil),
		func(img *image.RGBA) { got = append(got, img) }, nil)

	f, err := splitFrame(gpufilter.FormatRGBA, 2, 2, make([]byte, 16))
	require.NoError(t, err)
	g.handle(f)
	g.handle(gpufilter.Frame{Width: 2, Height: 2})

	require.Len(t, got, 1)
	assert.Equal(t, uint8(128), got[0].Pix[0], "flat frame embosses to mid grey")
	assert.Equal(t, uint64(1), g.Stats().Failed)
	require.NoError(t, g.Close())
}

type countingFilter struct {
	gpufilter.Passthrough
	closed int
}

func (f *countingFilter) Close() error {
	f.closed++
	return nil
}

func TestGrabber_CloseReleasesFilterOnce(t *testing.T) {
	f := &countingFilter{}
	g := NewGrabber(Config{Width: 2, Height: 2}, f, func(*image.RGBA) {}, nil)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, 1, f.closed)
}
