package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/ministudio/internal/config"
	"github.com/ivlev/ministudio/internal/live"
)

func TestRecordSink_SkipsStartFrame(t *testing.T) {
	calls := 0
	sink := recordSink(3, func() { calls++ })

	for id := uint64(1); id <= 3; id++ {
		sink(live.Frame{ID: id})
	}
	assert.Zero(t, calls, "чёрный стартовый кадр не считается")

	sink(live.Frame{ID: 4})
	assert.Equal(t, 1, calls)
	sink(live.Frame{ID: 5})
	assert.Equal(t, 1, calls, "остановка вызывается один раз")
}

func TestPresetsOf(t *testing.T) {
	cfg := config.Default()
	cfg.Switches = map[string]config.SwitchPreset{"title": {In: "linear", InMs: 150}}
	p, err := presetsOf(cfg)
	require.NoError(t, err)
	assert.Len(t, p.Title, len(live.DefaultPresets().Title)+2)

	cfg.Switches = map[string]config.SwitchPreset{"screen": {}}
	_, err = presetsOf(cfg)
	assert.Error(t, err)
}
