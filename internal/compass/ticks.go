package compass

import "strconv"

// TickKind is the length class of a dial tick.
type TickKind string

const (
	TickLong   TickKind = "long"   // every 30°
	TickMedium TickKind = "medium" // every 15°
	TickMinor  TickKind = "minor"  // every 5°
)

// Tick is one mark on the compass dial.
type Tick struct {
	Degree int      `json:"deg"`
	Kind   TickKind `json:"kind"`
	Label  string   `json:"label,omitempty"`
}

// Ticks returns the dial layout: a tick every 5°, numbered every 15° except
// at the four cardinal points, which the dial labels with letters instead.
func Ticks() []Tick {
	ticks := make([]Tick, 0, 72)
	for deg := 0; deg < 360; deg += 5 {
		t := Tick{Degree: deg, Kind: TickMinor}
		switch {
		case deg%30 == 0:
			t.Kind = TickLong
		case deg%15 == 0:
			t.Kind = TickMedium
		}
		if deg%15 == 0 && deg%90 != 0 {
			t.Label = strconv.Itoa(deg)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
