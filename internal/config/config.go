package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/ministudio/internal/anim"
	"github.com/ivlev/ministudio/internal/system"
)

const DefaultText = "DEFAULT"

type Config struct {
	Project  string `yaml:"project"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`

	// OutputDir получает папки сессий MiniStudio_*.
	OutputDir string `yaml:"output_dir"`
	// Screen: "x11", "pdf:<file>" или "images:<dir>".
	Screen      string  `yaml:"screen"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	RefreshRate float64 `yaml:"refresh_rate"`
	Workers     int     `yaml:"workers"`

	Camera   Camera                  `yaml:"camera"`
	Logo     string                  `yaml:"logo"`
	Fonts    Fonts                   `yaml:"fonts"`
	Switches map[string]SwitchPreset `yaml:"switches"`
	MQTT     MQTT                    `yaml:"mqtt"`
	LogLevel string                  `yaml:"log_level"`
}

type Camera struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`
	// Format: RGBA или I420.
	Format string `yaml:"format"`
	// Filter: emboss или passthrough.
	Filter string `yaml:"filter"`
}

type Fonts struct {
	Regular string `yaml:"regular"`
	Bold    string `yaml:"bold"`
}

// SwitchPreset задаёт кривые и длительности анимации одного оверлея.
type SwitchPreset struct {
	In    string `yaml:"in"`
	Out   string `yaml:"out"`
	InMs  int    `yaml:"in_ms"`
	OutMs int    `yaml:"out_ms"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Prefix   string `yaml:"prefix"`
	ClientID string `yaml:"client_id"`
}

func Default() *Config {
	return &Config{
		Title:     DefaultText,
		Subtitle:  DefaultText,
		OutputDir: system.MoviesDir(),
		Screen:    "x11",
		Width:     1280,
		Height:    720,
		Workers:   system.DefaultWorkers(),
		Camera: Camera{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			FPS:    30,
			Format: "RGBA",
			Filter: "emboss",
		},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			Prefix:   "ministudio",
			ClientID: "ministudio",
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.OutputDir = system.ExpandPath(cfg.OutputDir)
	cfg.Logo = system.ExpandPath(cfg.Logo)
	if cfg.Workers <= 0 {
		cfg.Workers = system.DefaultWorkers()
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Options converts the preset into switch options. Empty fields keep the defaults.
func (p SwitchPreset) Options() ([]anim.Option, error) {
	var opts []anim.Option
	if p.In != "" || p.Out != "" {
		in, out := anim.InQuad, anim.OutQuad
		var err error
		if p.In != "" {
			if in, err = anim.ParseCurve(p.In); err != nil {
				return nil, err
			}
		}
		if p.Out != "" {
			if out, err = anim.ParseCurve(p.Out); err != nil {
				return nil, err
			}
		}
		opts = append(opts, anim.WithCurves(in, out))
	}
	if p.InMs != 0 || p.OutMs != 0 {
		in, out := anim.DefaultInTime, anim.DefaultOutTime
		if p.InMs != 0 {
			in = time.Duration(p.InMs) * time.Millisecond
		}
		if p.OutMs != 0 {
			out = time.Duration(p.OutMs) * time.Millisecond
		}
		opts = append(opts, anim.WithDurations(in, out))
	}
	return opts, nil
}

// Level maps log_level to slog.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
