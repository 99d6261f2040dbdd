package control

import "sync"

// Controller parameter numbers of the control surface.
var (
	buttonNames = map[int]string{
		4: "Mute5", 5: "Mute6", 6: "Mute7", 7: "Mute8",
		19: "Rew", 20: "Fwd", 21: "Stop", 22: "Play", 23: "Record",
		36: "Select5", 37: "Select6", 38: "Select7", 39: "Select8",
		44: "High", 45: "HiMid", 46: "LowMid", 47: "Low",
		48: "Aux1", 49: "Aux2", 50: "Aux3", 51: "Aux4",
		52: "Asgn", 53: "F1", 54: "F2", 55: "F3",
		255: "InputC+D",
	}
	sliderNames = map[int]string{
		64: "Channel1", 65: "Channel2", 66: "Channel3", 67: "Channel4",
		68: "Channel5", 69: "Channel6", 70: "Channel7", 71: "Channel8",
	}
	knobNames = map[int]string{
		96: "BigDial", 72: "Gain", 73: "Freq", 74: "Q", 77: "Pan",
	}
	ids = func() map[string]int {
		m := make(map[string]int)
		for _, names := range []map[int]string{buttonNames, sliderNames, knobNames} {
			for id, name := range names {
				m[name] = id
			}
		}
		return m
	}()
)

func idOf(name string) int {
	if id, ok := ids[name]; ok {
		return id
	}
	return -1
}

// Lookup resolves a control name to its kind and parameter number.
func Lookup(name string) (Kind, int, bool) {
	id, ok := ids[name]
	if !ok {
		return 0, 0, false
	}
	kind, _, _ := ByID(id)
	return kind, id, true
}

// ByID resolves a parameter number to its kind and name.
func ByID(id int) (Kind, string, bool) {
	if name, ok := buttonNames[id]; ok {
		return Button, name, true
	}
	if name, ok := sliderNames[id]; ok {
		return Slider, name, true
	}
	if name, ok := knobNames[id]; ok {
		return Knob, name, true
	}
	return 0, "", false
}

// Surface turns raw controller changes (param, value 0..127) into named
// events. Repeated values are swallowed.
type Surface struct {
	mu   sync.Mutex
	last map[int]int
}

func NewSurface() *Surface {
	return &Surface{last: make(map[int]int)}
}

func (s *Surface) Decode(param, value int) (Event, bool) {
	s.mu.Lock()
	old, seen := s.last[param]
	s.last[param] = value
	s.mu.Unlock()
	if seen && old == value {
		return Event{}, false
	}

	if name, ok := buttonNames[param]; ok {
		return Event{Kind: Button, ID: param, Name: name, Pressed: value == 127}, true
	}
	if name, ok := sliderNames[param]; ok {
		return Event{Kind: Slider, ID: param, Name: name, Value: float64(value) / 127}, true
	}
	if name, ok := knobNames[param]; ok {
		return Event{Kind: Knob, ID: param, Name: name, Up: value > old}, true
	}
	return Event{}, false
}
