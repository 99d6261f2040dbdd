package gpufilter

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/draw"
)

type PixelFormat int

const (
	FormatInvalid PixelFormat = iota
	FormatRGBA
	FormatBGRA
	// FormatYUV420P is planar Y, U, V with 2x2 chroma subsampling.
	FormatYUV420P
	// FormatYV12 is FormatYUV420P with the chroma planes swapped (Y, V, U).
	FormatYV12
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "RGBA"
	case FormatBGRA:
		return "BGRA"
	case FormatYUV420P:
		return "YUV420P"
	case FormatYV12:
		return "YV12"
	default:
		return "invalid"
	}
}

// Planar reports whether the format stores chroma in separate subsampled planes.
func (f PixelFormat) Planar() bool { return f == FormatYUV420P || f == FormatYV12 }

// HandleType says where a frame's pixels live.
type HandleType int

const (
	// HandleNone frames carry their pixels in Planes.
	HandleNone HandleType = iota
	// HandleTexture frames already live on the device as Texture.
	HandleTexture
	// HandleUnsupported marks buffers the filter cannot read (e.g. foreign GPU surfaces).
	HandleUnsupported
)

var ErrUnsupportedFrame = errors.New("unsupported frame")

// Frame is one captured video frame.
type Frame struct {
	Format  PixelFormat
	Width   int
	Height  int
	Planes  [][]byte
	Strides []int

	Handle  HandleType
	Texture TextureID

	Timestamp time.Time
	TraceID   string
}

// FrameFromImage wraps an RGBA image without copying.
func FrameFromImage(img *image.RGBA) Frame {
	return Frame{
		Format:    FormatRGBA,
		Width:     img.Rect.Dx(),
		Height:    img.Rect.Dy(),
		Planes:    [][]byte{img.Pix},
		Strides:   []int{img.Stride},
		Timestamp: time.Now(),
	}
}

// Validate checks that the frame can be consumed by a filter.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrUnsupportedFrame, f.Width, f.Height)
	}
	switch f.Handle {
	case HandleTexture:
		if f.Texture == 0 {
			return fmt.Errorf("%w: texture handle is zero", ErrUnsupportedFrame)
		}
		return nil
	case HandleNone:
	default:
		return fmt.Errorf("%w: handle type %d", ErrUnsupportedFrame, f.Handle)
	}

	switch f.Format {
	case FormatRGBA, FormatBGRA:
		if len(f.Planes) < 1 || len(f.Strides) < 1 || f.Strides[0] < f.Width*4 {
			return fmt.Errorf("%w: packed %s without a readable plane", ErrUnsupportedFrame, f.Format)
		}
		if len(f.Planes[0]) < f.Strides[0]*(f.Height-1)+f.Width*4 {
			return fmt.Errorf("%w: %s plane too short", ErrUnsupportedFrame, f.Format)
		}
	case FormatYUV420P, FormatYV12:
		if len(f.Planes) < 3 || len(f.Strides) < 3 {
			return fmt.Errorf("%w: %s needs 3 planes", ErrUnsupportedFrame, f.Format)
		}
		cw, ch := (f.Width+1)/2, (f.Height+1)/2
		if len(f.Planes[0]) < f.Strides[0]*(f.Height-1)+f.Width ||
			len(f.Planes[1]) < f.Strides[1]*(ch-1)+cw ||
			len(f.Planes[2]) < f.Strides[2]*(ch-1)+cw {
			return fmt.Errorf("%w: %s planes too short", ErrUnsupportedFrame, f.Format)
		}
	default:
		return fmt.Errorf("%w: pixel format %s", ErrUnsupportedFrame, f.Format)
	}
	return nil
}

// ToRGBA returns the frame as packed RGBA. RGBA frames are wrapped without
// copying; everything else is converted into a new buffer.
func (f Frame) ToRGBA() (*image.RGBA, error) {
	if f.Handle != HandleNone {
		return nil, fmt.Errorf("%w: frame is not in system memory", ErrUnsupportedFrame)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Format {
	case FormatRGBA:
		return &image.RGBA{Pix: f.Planes[0], Stride: f.Strides[0], Rect: rect}, nil
	case FormatBGRA:
		out := image.NewRGBA(rect)
		for y := 0; y < f.Height; y++ {
			src := f.Planes[0][y*f.Strides[0] : y*f.Strides[0]+f.Width*4]
			dst := out.Pix[y*out.Stride : y*out.Stride+f.Width*4]
			for i := 0; i < len(src); i += 4 {
				dst[i+0], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i+0], src[i+3]
			}
		}
		return out, nil
	default:
		cb, cr := 1, 2
		if f.Format == FormatYV12 {
			cb, cr = 2, 1
		}
		ycc := &image.YCbCr{
			Y:              f.Planes[0],
			Cb:             f.Planes[cb],
			Cr:             f.Planes[cr],
			YStride:        f.Strides[0],
			CStride:        f.Strides[cb],
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           rect,
		}
		out := image.NewRGBA(rect)
		draw.Draw(out, rect, ycc, image.Point{}, draw.Src)
		return out, nil
	}
}

// Snapshot returns an RGBA copy that does not alias the frame's planes.
func (f Frame) Snapshot() (*image.RGBA, error) {
	img, err := f.ToRGBA()
	if err != nil {
		return nil, err
	}
	if f.Format == FormatRGBA {
		return clone.AsRGBA(img), nil
	}
	return img, nil
}
