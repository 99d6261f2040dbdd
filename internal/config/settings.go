package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings are the studio toggles remembered between runs.
type Settings struct {
	MagLevel      float64 `yaml:"mag_level"`
	PIPSize       float64 `yaml:"pip_size"`
	TitleEnabled  bool    `yaml:"title_enabled"`
	LogoEnabled   bool    `yaml:"logo_enabled"`
	CameraEnabled bool    `yaml:"camera_enabled"`
}

func DefaultSettings() Settings {
	return Settings{MagLevel: 1, PIPSize: 1}
}

func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse %s: %w", path, err)
	}
	if s.MagLevel <= 0 {
		s.MagLevel = 1
	}
	if s.PIPSize <= 0 {
		s.PIPSize = 1
	}
	return s, nil
}

func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
