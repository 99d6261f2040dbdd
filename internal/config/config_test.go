package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultText, cfg.Title)
	assert.Equal(t, DefaultText, cfg.Subtitle)
	assert.Equal(t, "x11", cfg.Screen)
	assert.Equal(t, "emboss", cfg.Camera.Filter)
	assert.Positive(t, cfg.Workers)
}

func TestLoad_OverridesAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ministudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project: demo
title: Hello
screen: images:/tmp/slides
workers: 0
camera:
  enabled: true
  format: I420
switches:
  title:
    in: linear
    in_ms: 250
mqtt:
  broker: tcp://broker:1883
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Project)
	assert.Equal(t, "Hello", cfg.Title)
	assert.Equal(t, DefaultText, cfg.Subtitle, "unset fields keep defaults")
	assert.True(t, cfg.Camera.Enabled)
	assert.Equal(t, "I420", cfg.Camera.Format)
	assert.Equal(t, "/dev/video0", cfg.Camera.Device)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, "ministudio", cfg.MQTT.Prefix)

	opts, err := cfg.Switches["title"].Options()
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	out := filepath.Join(t.TempDir(), "copy.yaml")
	require.NoError(t, cfg.Save(out))
	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSwitchPreset_Options(t *testing.T) {
	tests := []struct {
		name    string
		preset  SwitchPreset
		want    int
		wantErr bool
	}{
		{"empty", SwitchPreset{}, 0, false},
		{"curves only", SwitchPreset{In: "OutBack", Out: "out-quad"}, 1, false},
		{"durations only", SwitchPreset{InMs: 100}, 1, false},
		{"unknown curve", SwitchPreset{In: "wobble"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.preset.Options()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tt.want)
		})
	}
}

func TestSettings_PersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	s = Settings{MagLevel: 2.5, PIPSize: 0.8, TitleEnabled: true, CameraEnabled: true}
	require.NoError(t, SaveSettings(path, s))
	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ministudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: one\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) { got <- c.Title }))

	require.NoError(t, os.WriteFile(path, []byte("title: two\n"), 0o644))
	select {
	case title := <-got:
		assert.Equal(t, "two", title)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}
