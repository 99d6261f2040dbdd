package gpufilter

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yuvFrame(format PixelFormat, w, h int, y, u, v byte) Frame {
	cw, ch := (w+1)/2, (h+1)/2
	fill := func(n int, b byte) []byte {
		p := make([]byte, n)
		for i := range p {
			p[i] = b
		}
		return p
	}
	planes := [][]byte{fill(w*h, y), fill(cw*ch, u), fill(cw*ch, v)}
	if format == FormatYV12 {
		planes[1], planes[2] = planes[2], planes[1]
	}
	return Frame{Format: format, Width: w, Height: h, Planes: planes, Strides: []int{w, cw, cw}}
}

func TestFrame_YUVToRGBA(t *testing.T) {
	tests := []struct {
		name    string
		y, u, v byte
		check   func(t *testing.T, c [4]uint8)
	}{
		{"black", 0, 128, 128, func(t *testing.T, c [4]uint8) {
			assert.Equal(t, [4]uint8{0, 0, 0, 0xff}, c)
		}},
		{"white", 255, 128, 128, func(t *testing.T, c [4]uint8) {
			assert.Equal(t, [4]uint8{0xff, 0xff, 0xff, 0xff}, c)
		}},
		{"red", 76, 85, 255, func(t *testing.T, c [4]uint8) {
			assert.Greater(t, c[0], uint8(200))
			assert.Less(t, c[1], uint8(40))
			assert.Less(t, c[2], uint8(40))
		}},
	}
	for _, format := range []PixelFormat{FormatYUV420P, FormatYV12} {
		for _, tt := range tests {
			t.Run(format.String()+"/"+tt.name, func(t *testing.T) {
				img, err := yuvFrame(format, 4, 2, tt.y, tt.u, tt.v).ToRGBA()
				require.NoError(t, err)
				require.Equal(t, image.Rect(0, 0, 4, 2), img.Rect)
				p := img.Pix[img.PixOffset(3, 1):]
				tt.check(t, [4]uint8{p[0], p[1], p[2], p[3]})
			})
		}
	}
}

func TestFrame_BGRASwapsChannels(t *testing.T) {
	f := Frame{Format: FormatBGRA, Width: 1, Height: 1, Planes: [][]byte{{1, 2, 3, 4}}, Strides: []int{4}}
	img, err := f.ToRGBA()
	require.NoError(t, err)
	assert.Equal(t, []uint8{3, 2, 1, 4}, img.Pix)
}

func TestFrame_SnapshotDoesNotAlias(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	f := FrameFromImage(src)

	wrapped, err := f.ToRGBA()
	require.NoError(t, err)
	snap, err := f.Snapshot()
	require.NoError(t, err)

	src.Pix[0] = 42
	assert.Equal(t, uint8(42), wrapped.Pix[0])
	assert.Equal(t, uint8(0), snap.Pix[0])
}

func TestNew_Variants(t *testing.T) {
	d := NewSoftwareDriver()
	f, err := New("emboss", d, nil)
	require.NoError(t, err)
	assert.IsType(t, &VideoFilter{}, f)

	f, err = New("passthrough", d, nil)
	require.NoError(t, err)
	out, err := f.Run(FrameFromImage(gradient(3, 3)))
	require.NoError(t, err)
	assert.Equal(t, gradient(3, 3).Pix, out.Pix)

	_, err = New("sepia", d, nil)
	assert.Error(t, err)
}
