package pattern

import "strings"

// Template selects the drum arrangement laid over the beats.
type Template int

const (
	Basic Template = iota
	HiHat
	Full
)

// ParseTemplate maps a name to a Template. Unknown names give Basic.
func ParseTemplate(name string) Template {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hihat", "hi-hat", "hi_hat":
		return HiHat
	case "full":
		return Full
	default:
		return Basic
	}
}

func (t Template) String() string {
	switch t {
	case HiHat:
		return "hihat"
	case Full:
		return "full"
	default:
		return "basic"
	}
}

const (
	noteDuration  = 0.1
	crashDuration = 0.2

	accentDelta = 10
	rideDelta   = -10
	ghostDelta  = -20

	fillBlock = 16
)

// notes lays the template over beats. Out-of-range templates are Basic.
func (t Template) notes(beats []float64, velocity int) []Note {
	switch t {
	case HiHat:
		return hihatNotes(beats, velocity, false)
	case Full:
		return fullNotes(beats, velocity)
	case Basic:
		return basicNotes(beats, velocity)
	default:
		return basicNotes(beats, velocity)
	}
}

// basicNotes puts the kick on beats 1 and 3 and the snare on 2 and 4 of
// each four-beat bar.
func basicNotes(beats []float64, velocity int) []Note {
	notes := make([]Note, 0, len(beats))
	for i, b := range beats {
		voice := Kick
		if i%4 == 1 || i%4 == 3 {
			voice = Snare
		}
		notes = append(notes, newNote(b, noteDuration, voice, velocity))
	}
	return notes
}

// hihatNotes adds a closed hat on every beat and a quieter one halfway
// between consecutive beats. With ride set, the on-beat hat of the second
// half of each eight-beat block is played on the ride instead.
func hihatNotes(beats []float64, velocity int, ride bool) []Note {
	notes := basicNotes(beats, velocity)
	for i, b := range beats {
		if ride && i%8 >= 4 {
			notes = append(notes, newNote(b, noteDuration, Ride, velocity+rideDelta))
			continue
		}
		notes = append(notes, newNote(b, noteDuration, ClosedHiHat, velocity))
	}
	for i := 0; i+1 < len(beats); i++ {
		mid := (beats[i] + beats[i+1]) / 2
		notes = append(notes, newNote(mid, noteDuration, ClosedHiHat, velocity+ghostDelta))
	}
	return notes
}

func fullNotes(beats []float64, velocity int) []Note {
	notes := hihatNotes(beats, velocity, true)
	if len(beats) == 0 {
		return notes
	}

	notes = append(notes, newNote(beats[0], crashDuration, Crash, velocity+accentDelta))

	for i := fillBlock - 1; i < len(beats); i += fillBlock {
		notes = append(notes,
			newNote(beats[i-2], noteDuration, TomHigh, velocity),
			newNote(beats[i-1], noteDuration, TomMid, velocity),
			newNote(beats[i], noteDuration, TomLow, velocity),
		)
	}
	return notes
}

func newNote(onset, duration float64, voice Voice, velocity int) Note {
	return Note{Onset: onset, Duration: duration, Voice: voice, Velocity: clampVelocity(velocity)}
}

func clampVelocity(v int) int {
	return max(0, min(127, v))
}
