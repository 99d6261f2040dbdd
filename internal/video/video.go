package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ivlev/ministudio/internal/session"
	"github.com/ivlev/ministudio/internal/system"
)

const defaultFPS = 15

// Export describes encoding a session's PNG sequence into a video file.
type Export struct {
	Dir     string
	Output  string
	FPS     float64
	Encoder string
	Quality int
}

// NewExport fills the frame rate from the session manifest and picks the
// best available encoder.
func NewExport(dir, output string) (Export, error) {
	m, err := session.ReadManifest(dir)
	if err != nil {
		return Export{}, fmt.Errorf("read session: %w", err)
	}
	e := Export{Dir: dir, Output: output, FPS: m.FPS}
	if e.FPS <= 0 {
		e.FPS = defaultFPS
	}
	if e.Output == "" {
		e.Output = filepath.Clean(dir) + ".mp4"
	}
	e.Encoder = system.GetBestH264Encoder()
	e.Quality = system.DefaultQuality(e.Encoder)
	return e, nil
}

func (e Export) Args() []string {
	args := []string{
		"-y",
		"-framerate", strconv.FormatFloat(e.FPS, 'f', -1, 64),
		"-pattern_type", "glob",
		"-i", filepath.Join(e.Dir, "frame_*.png"),
		// H.264 требует чётные размеры.
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-pix_fmt", "yuv420p",
		"-c:v", e.Encoder,
	}
	args = append(args, qualityArgs(e.Encoder, e.Quality)...)
	return append(args, e.Output)
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

func (e Export) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", e.Args()...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg export error: %w, output: %s", err, out)
	}
	return nil
}

// Preview streams raw RGBA frames into an ffplay window.
type Preview struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	size  image.Point
	log   bytes.Buffer
}

func previewArgs(size image.Point, fps float64) []string {
	return []string{
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-window_title", "MiniStudio",
		"-i", "-",
	}
}

func NewPreview(ctx context.Context, size image.Point, fps float64) (*Preview, error) {
	p := &Preview{size: size}
	p.cmd = exec.CommandContext(ctx, "ffplay", previewArgs(size, fps)...)
	p.cmd.Stdout = &p.log
	p.cmd.Stderr = &p.log

	var err error
	if p.stdin, err = p.cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffplay start error: %w", err)
	}
	return p, nil
}

func (p *Preview) Write(img *image.RGBA) error {
	if img.Rect.Size() != p.size {
		return fmt.Errorf("preview frame %v, want %v", img.Rect.Size(), p.size)
	}
	return writeRawRGBA(p.stdin, img)
}

func (p *Preview) Close() error {
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("ffplay: %w: %s", err, p.log.String())
	}
	return nil
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rectangle{Max: bounds.Size()})
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
