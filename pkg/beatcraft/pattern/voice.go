package pattern

// Voice is a drum kit piece.
type Voice int

const (
	Kick Voice = iota
	Snare
	ClosedHiHat
	OpenHiHat
	Ride
	Crash
	TomLow
	TomMid
	TomHigh
)

var voiceNames = [...]string{
	Kick:        "kick",
	Snare:       "snare",
	ClosedHiHat: "closed_hihat",
	OpenHiHat:   "open_hihat",
	Ride:        "ride",
	Crash:       "crash",
	TomLow:      "tom_low",
	TomMid:      "tom_mid",
	TomHigh:     "tom_high",
}

// General MIDI percussion key numbers.
var voiceKeys = [...]uint8{
	Kick:        36,
	Snare:       38,
	ClosedHiHat: 42,
	OpenHiHat:   46,
	Ride:        51,
	Crash:       49,
	TomLow:      41,
	TomMid:      47,
	TomHigh:     50,
}

func (v Voice) String() string {
	if v < 0 || int(v) >= len(voiceNames) {
		return "unknown"
	}
	return voiceNames[v]
}

// MIDINote returns the General MIDI drum key for v.
func (v Voice) MIDINote() uint8 {
	if v < 0 || int(v) >= len(voiceKeys) {
		return voiceKeys[Kick]
	}
	return voiceKeys[v]
}

// Note is a single timed drum hit. Times are in seconds.
type Note struct {
	Onset    float64
	Duration float64
	Voice    Voice
	Velocity int
}
