package video

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/ministudio/internal/session"
)

func TestExportArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    []string
	}{
		{"libx264", 23, []string{"-crf", "23", "-preset", "medium"}},
		{"h264_nvenc", 28, []string{"-cq", "28"}},
		{"h264_videotoolbox", 75, []string{"-b:v", "7500k"}},
	}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			e := Export{Dir: "/s", Output: "/out.mp4", FPS: 15, Encoder: tt.encoder, Quality: tt.quality}
			args := e.Args()
			assert.Equal(t, "-y", args[0])
			assert.Equal(t, "/out.mp4", args[len(args)-1])
			assert.Contains(t, args, "/s/frame_*.png")
			assert.Subset(t, args, tt.want)
			assert.Subset(t, args, []string{"-framerate", "15", "-c:v", tt.encoder})
		})
	}
}

func TestNewExport_FromManifest(t *testing.T) {
	s, err := session.Create(t.TempDir(), session.Manifest{Project: "p", FPS: 12.5})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	e, err := NewExport(s.Dir(), "")
	require.NoError(t, err)
	assert.Equal(t, 12.5, e.FPS)
	assert.Equal(t, filepath.Clean(s.Dir())+".mp4", e.Output)
	assert.NotEmpty(t, e.Encoder)

	_, err = NewExport(t.TempDir(), "")
	assert.Error(t, err)
}

func TestPreviewArgs(t *testing.T) {
	args := previewArgs(image.Pt(640, 360), 15)
	assert.Subset(t, args, []string{"-video_size", "640x360", "-pixel_format", "rgba", "-i", "-"})
}

func TestWriteRawRGBA_SubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	sub := img.SubImage(image.Rect(1, 1, 3, 3))

	var buf bytes.Buffer
	require.NoError(t, writeRawRGBA(&buf, sub))
	require.Equal(t, 2*2*4, buf.Len())
	assert.Equal(t, img.Pix[img.PixOffset(1, 1):img.PixOffset(1, 1)+8], buf.Bytes()[:8])
}
