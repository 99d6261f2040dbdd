package simulator

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/ministudio/internal/control"
)

func TestKeyEvents(t *testing.T) {
	tests := []struct {
		key  string
		want []control.Event
	}{
		{"p", []control.Event{control.ButtonEvent("Play", true), control.ButtonEvent("Play", false)}},
		{"r", []control.Event{control.ButtonEvent("Record", true), control.ButtonEvent("Record", false)}},
		{"3", []control.Event{control.ButtonEvent("Aux3", true), control.ButtonEvent("Aux3", false)}},
		{"right", []control.Event{control.ButtonEvent("Fwd", true), control.ButtonEvent("Fwd", false)}},
		{"c", []control.Event{control.ButtonEvent("InputC+D", true), control.ButtonEvent("InputC+D", false)}},
		{"+", []control.Event{control.KnobEvent("BigDial", true)}},
		{"-", []control.Event{control.KnobEvent("BigDial", false)}},
		{"x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := New(nil, nil)
			assert.Equal(t, tt.want, m.eventsFor(tt.key))
		})
	}
}

func TestHoldKeysToggle(t *testing.T) {
	m := New(nil, nil)
	assert.Equal(t, []control.Event{control.ButtonEvent("F1", true)}, m.eventsFor("f1"))
	assert.Equal(t, []control.Event{control.ButtonEvent("F1", false)}, m.eventsFor("m"))
	assert.Equal(t, []control.Event{control.ButtonEvent("F2", true)}, m.eventsFor("h"))
}

func TestSliderClamps(t *testing.T) {
	m := New(nil, nil)
	// Начинаем с 1: вверх некуда.
	assert.Nil(t, m.eventsFor("up"))

	evs := m.eventsFor("down")
	require.Len(t, evs, 1)
	assert.Equal(t, "Channel1", evs[0].Name)
	assert.InDelta(t, 0.9, evs[0].Value, 1e-9)

	for i := 0; i < 20; i++ {
		m.eventsFor("down")
	}
	assert.Equal(t, 0.0, m.slider)
	assert.Nil(t, m.eventsFor("down"))
}

func TestUpdateEmitsAndQuits(t *testing.T) {
	var got []control.Event
	status := control.Status{Live: true, CameraOpacity: 0.5}
	m := New(func(ev control.Event) { got = append(got, ev) }, func() control.Status { return status })
	assert.InDelta(t, 0.5, m.slider, 1e-9)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Nil(t, cmd)
	require.Len(t, got, 2)
	assert.Equal(t, "Aux1", got[0].Name)
	assert.Contains(t, m.View(), "live")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
