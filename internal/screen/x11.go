package screen

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

const defaultX11Rate = 60

// X11 grabs the root window of the default X display.
type X11 struct {
	mu   sync.Mutex
	conn *xgb.Conn
	root xproto.Window
	size image.Point
	rate float64
}

func OpenX11(opts Options) (*X11, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoScreen, err)
	}
	s := xproto.Setup(conn).DefaultScreen(conn)
	x := &X11{
		conn: conn,
		root: s.Root,
		size: image.Pt(int(s.WidthInPixels), int(s.HeightInPixels)),
		rate: opts.RefreshRate,
	}
	if x.rate <= 0 {
		x.rate = x.queryRate()
	}
	slog.Info("x11 screen opened", "width", x.size.X, "height", x.size.Y, "refresh", x.rate)
	return x, nil
}

func (x *X11) queryRate() float64 {
	if err := randr.Init(x.conn); err != nil {
		slog.Debug("randr unavailable", "error", err)
		return defaultX11Rate
	}
	info, err := randr.GetScreenInfo(x.conn, x.root).Reply()
	if err != nil || info.Rate == 0 {
		return defaultX11Rate
	}
	return float64(info.Rate)
}

func (x *X11) Size() image.Point { return x.size }

func (x *X11) RefreshRate() float64 { return x.rate }

// Grab reads the root window as a ZPixmap. 24/32-bit TrueColor visuals
// deliver BGRX bytes.
func (x *X11) Grab() (image.Image, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	reply, err := xproto.GetImage(x.conn, xproto.ImageFormatZPixmap, xproto.Drawable(x.root),
		0, 0, uint16(x.size.X), uint16(x.size.Y), 0xffffffff).Reply()
	if err != nil {
		return nil, fmt.Errorf("x11 get image: %w", err)
	}
	if len(reply.Data) < x.size.X*x.size.Y*4 {
		return nil, fmt.Errorf("x11 get image: short reply (%d bytes, depth %d)", len(reply.Data), reply.Depth)
	}

	img := image.NewRGBA(image.Rectangle{Max: x.size})
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = reply.Data[i+2]
		img.Pix[i+1] = reply.Data[i+1]
		img.Pix[i+2] = reply.Data[i+0]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

func (x *X11) Cursor() image.Point {
	x.mu.Lock()
	defer x.mu.Unlock()
	reply, err := xproto.QueryPointer(x.conn, x.root).Reply()
	if err != nil {
		return x.size.Div(2)
	}
	return image.Pt(int(reply.RootX), int(reply.RootY))
}

func (x *X11) Close() error {
	x.conn.Close()
	return nil
}
