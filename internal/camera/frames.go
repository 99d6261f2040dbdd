package camera

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/ministudio/internal/gpufilter"
)

// ParseFormat accepts the caps names used in the config.
func ParseFormat(s string) (gpufilter.PixelFormat, error) {
	switch strings.ToUpper(s) {
	case "", "RGBA":
		return gpufilter.FormatRGBA, nil
	case "I420", "YUV420P":
		return gpufilter.FormatYUV420P, nil
	case "YV12":
		return gpufilter.FormatYV12, nil
	default:
		return gpufilter.FormatInvalid, fmt.Errorf("unsupported camera format: %s", s)
	}
}

func capsFormat(f gpufilter.PixelFormat) string {
	switch f {
	case gpufilter.FormatYUV420P:
		return "I420"
	case gpufilter.FormatYV12:
		return "YV12"
	default:
		return "RGBA"
	}
}

func roundUp4(n int) int { return (n + 3) &^ 3 }

// splitFrame wraps a raw video buffer as a filter frame. Planar rows are
// padded to 4 bytes, as GStreamer lays out I420 and YV12.
func splitFrame(format gpufilter.PixelFormat, w, h int, data []byte) (gpufilter.Frame, error) {
	f := gpufilter.Frame{
		Format:    format,
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
		TraceID:   uuid.New().String(),
	}
	switch format {
	case gpufilter.FormatRGBA:
		if len(data) < w*h*4 {
			return f, fmt.Errorf("short RGBA buffer: %d bytes for %dx%d", len(data), w, h)
		}
		f.Planes = [][]byte{data}
		f.Strides = []int{w * 4}
	case gpufilter.FormatYUV420P, gpufilter.FormatYV12:
		ys, cs := roundUp4(w), roundUp4((w+1)/2)
		ch := (h + 1) / 2
		ySize, cSize := ys*h, cs*ch
		if len(data) < ySize+2*cSize {
			return f, fmt.Errorf("short %s buffer: %d bytes for %dx%d", format, len(data), w, h)
		}
		f.Planes = [][]byte{data[:ySize], data[ySize : ySize+cSize], data[ySize+cSize : ySize+2*cSize]}
		f.Strides = []int{ys, cs, cs}
	default:
		return f, fmt.Errorf("%w: %s", gpufilter.ErrUnsupportedFrame, format)
	}
	return f, nil
}
