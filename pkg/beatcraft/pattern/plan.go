package pattern

import (
	"sort"
)

// Plan is an immutable, time-ordered drum pattern at a fixed tempo.
type Plan struct {
	tempo float64
	notes []Note
}

// NewPlan copies notes and orders them by onset, then voice.
func NewPlan(tempo float64, notes []Note) *Plan {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Onset != sorted[j].Onset {
			return sorted[i].Onset < sorted[j].Onset
		}
		return sorted[i].Voice < sorted[j].Voice
	})
	return &Plan{tempo: tempo, notes: sorted}
}

// Tempo is the plan tempo in BPM.
func (p *Plan) Tempo() float64 { return p.tempo }

// Notes returns a copy of the plan's notes.
func (p *Plan) Notes() []Note {
	out := make([]Note, len(p.notes))
	copy(out, p.notes)
	return out
}

func (p *Plan) Len() int { return len(p.notes) }

// Count returns how many notes use voice v.
func (p *Plan) Count(v Voice) int {
	n := 0
	for _, note := range p.notes {
		if note.Voice == v {
			n++
		}
	}
	return n
}

// End is the time the last note stops sounding.
func (p *Plan) End() float64 {
	var end float64
	for _, note := range p.notes {
		end = max(end, note.Onset+note.Duration)
	}
	return end
}
