package control

import "fmt"

type Kind int

const (
	Button Kind = iota
	Slider
	Knob
)

func (k Kind) String() string {
	switch k {
	case Button:
		return "button"
	case Slider:
		return "slider"
	case Knob:
		return "knob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one named change on the control surface.
type Event struct {
	Kind    Kind    `json:"kind"`
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Pressed bool    `json:"pressed,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Up      bool    `json:"up,omitempty"`
}

func ButtonEvent(name string, pressed bool) Event {
	return Event{Kind: Button, ID: idOf(name), Name: name, Pressed: pressed}
}

func SliderEvent(name string, value float64) Event {
	return Event{Kind: Slider, ID: idOf(name), Name: name, Value: value}
}

func KnobEvent(name string, up bool) Event {
	return Event{Kind: Knob, ID: idOf(name), Name: name, Up: up}
}

func (e Event) String() string {
	switch e.Kind {
	case Button:
		return fmt.Sprintf("%s %s pressed=%v", e.Kind, e.Name, e.Pressed)
	case Slider:
		return fmt.Sprintf("%s %s value=%.3f", e.Kind, e.Name, e.Value)
	default:
		return fmt.Sprintf("%s %s up=%v", e.Kind, e.Name, e.Up)
	}
}
