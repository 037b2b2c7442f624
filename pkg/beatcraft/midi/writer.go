// Package midi serializes drum plans as Standard MIDI Files.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	gm "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
)

// DrumChannel is General MIDI channel 10, zero indexed.
const DrumChannel = 9

var ErrInvalidTempo = errors.New("plan tempo must be positive")

type Options struct {
	TicksPerQuarter uint16
	TrackName       string
}

func DefaultOptions() Options {
	return Options{
		TicksPerQuarter: 480,
		TrackName:       "Drums",
	}
}

type event struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// Encode renders plan as a type 1 SMF: a conductor track carrying tempo
// and meter, then one drum track.
func Encode(plan *pattern.Plan, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, plan, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the SMF encoding of plan to w.
func Write(w io.Writer, plan *pattern.Plan, opts Options) error {
	def := DefaultOptions()
	if opts.TicksPerQuarter == 0 {
		opts.TicksPerQuarter = def.TicksPerQuarter
	}
	if opts.TrackName == "" {
		opts.TrackName = def.TrackName
	}

	bpm := plan.Tempo()
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(bpm))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("adding conductor track: %w", err)
	}

	var drums smf.Track
	drums.Add(0, smf.MetaTrackSequenceName(opts.TrackName))

	var last uint32
	for _, ev := range noteEvents(plan, bpm, opts.TicksPerQuarter) {
		msg := gm.NoteOff(DrumChannel, ev.key)
		if ev.on {
			msg = gm.NoteOn(DrumChannel, ev.key, ev.vel)
		}
		drums.Add(ev.tick-last, msg)
		last = ev.tick
	}
	drums.Close(0)
	if err := s.Add(drums); err != nil {
		return fmt.Errorf("adding drum track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing SMF: %w", err)
	}
	return nil
}

// noteEvents converts notes to absolute-tick on/off pairs. A note is cut
// short at the next onset of the same key; silent and duplicate notes are
// dropped. Offs sort before ons at the same tick.
func noteEvents(plan *pattern.Plan, bpm float64, tpq uint16) []event {
	toTicks := func(sec float64) uint32 {
		if sec <= 0 {
			return 0
		}
		return uint32(math.Round(sec * bpm / 60 * float64(tpq)))
	}

	type span struct {
		start, end uint32
		key, vel   uint8
	}

	byKey := make(map[uint8][]span)
	for _, n := range plan.Notes() {
		if n.Velocity <= 0 {
			continue
		}
		start := toTicks(n.Onset)
		end := max(toTicks(n.Onset+n.Duration), start+1)
		key := n.Voice.MIDINote()
		byKey[key] = append(byKey[key], span{start, end, key, uint8(min(n.Velocity, 127))})
	}

	var events []event
	for _, spans := range byKey {
		for i, sp := range spans {
			if i > 0 && spans[i-1].start == sp.start {
				continue
			}
			for _, next := range spans[i+1:] {
				if next.start > sp.start {
					sp.end = min(sp.end, next.start)
					break
				}
			}
			events = append(events,
				event{tick: sp.start, on: true, key: sp.key, vel: sp.vel},
				event{tick: sp.end, on: false, key: sp.key},
			)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		if a.on != b.on {
			return !a.on
		}
		return a.key < b.key
	})
	return events
}
