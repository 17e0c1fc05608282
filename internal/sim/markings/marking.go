package markings

import "humanoidcraft.ai/internal/sim/palette"

// Marking is one applied instance of a Definition. Colors line up with the
// definition's sprites; missing trailing entries render white.
type Marking struct {
	ID      string          `json:"id"`
	Colors  []palette.Color `json:"colors,omitempty"`
	Visible bool            `json:"visible"`
	// Forced markings ignore category point budgets.
	Forced bool `json:"forced,omitempty"`
}

func New(id string, colors []palette.Color) Marking {
	return Marking{ID: id, Colors: append([]palette.Color(nil), colors...), Visible: true}
}

// SetColor sets one layer color; out of range indices are ignored.
func (m *Marking) SetColor(i int, c palette.Color) {
	if i < 0 || i >= len(m.Colors) {
		return
	}
	m.Colors[i] = c
}

// SetAllColors paints every existing layer the same color.
func (m *Marking) SetAllColors(c palette.Color) {
	for i := range m.Colors {
		m.Colors[i] = c
	}
}

// ColorAt returns the color of layer i, white when absent.
func (m Marking) ColorAt(i int) palette.Color {
	if i >= 0 && i < len(m.Colors) {
		return m.Colors[i]
	}
	return palette.White
}

func (m Marking) Clone() Marking {
	m.Colors = append([]palette.Color(nil), m.Colors...)
	return m
}
