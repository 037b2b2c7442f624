package midi

import (
	"bytes"
	"errors"
	"math"
	"testing"

	gm "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
)

type decodedNote struct {
	tick uint64
	key  uint8
	vel  uint8
}

func decode(t *testing.T, data []byte) (*smf.SMF, []decodedNote, float64) {
	t.Helper()

	rd, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to read SMF: %v", err)
	}

	var notes []decodedNote
	var bpm float64
	for _, tr := range rd.Tracks {
		var abs uint64
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			var tempo float64
			if ev.Message.GetMetaTempo(&tempo) {
				bpm = tempo
			}
			var ch, key, vel uint8
			if gm.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
				if ch != DrumChannel {
					t.Errorf("Note on channel %d, expected %d", ch, DrumChannel)
				}
				notes = append(notes, decodedNote{abs, key, vel})
			}
		}
	}
	return rd, notes, bpm
}

func TestEncodeBasicPlan(t *testing.T) {
	plan := pattern.Generate([]float64{0, 0.5, 1, 1.5}, 120, pattern.Basic, 100, 0.5)

	data, err := Encode(plan, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	rd, notes, bpm := decode(t, data)
	if len(rd.Tracks) != 2 {
		t.Errorf("Expected conductor and drum tracks, got %d", len(rd.Tracks))
	}
	if math.Abs(bpm-120) > 0.01 {
		t.Errorf("Expected tempo 120, got %f", bpm)
	}

	// 0.5s at 120 BPM is one quarter note.
	wantTicks := []uint64{0, 480, 960, 1440}
	wantKeys := []uint8{36, 38, 36, 38}
	if len(notes) != 4 {
		t.Fatalf("Expected 4 notes, got %d", len(notes))
	}
	for i, n := range notes {
		if n.tick != wantTicks[i] || n.key != wantKeys[i] || n.vel != 100 {
			t.Errorf("Note %d: expected tick %d key %d vel 100, got %+v", i, wantTicks[i], wantKeys[i], n)
		}
	}
}

func TestEncodeSkipsSilentNotes(t *testing.T) {
	plan := pattern.NewPlan(120, []pattern.Note{
		{Onset: 0, Duration: 0.1, Voice: pattern.Kick, Velocity: 0},
		{Onset: 0.5, Duration: 0.1, Voice: pattern.Snare, Velocity: 90},
	})

	data, err := Encode(plan, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, notes, _ := decode(t, data)
	if len(notes) != 1 || notes[0].key != 38 {
		t.Errorf("Expected only the snare, got %+v", notes)
	}
}

func TestEncodeInvalidTempo(t *testing.T) {
	for _, bpm := range []float64{0, -1, math.NaN()} {
		plan := pattern.NewPlan(bpm, nil)
		if _, err := Encode(plan, DefaultOptions()); !errors.Is(err, ErrInvalidTempo) {
			t.Errorf("tempo %f: expected ErrInvalidTempo, got %v", bpm, err)
		}
	}
}

func TestNoteEventsShortenOverlaps(t *testing.T) {
	plan := pattern.NewPlan(120, []pattern.Note{
		{Onset: 0, Duration: 1, Voice: pattern.Ride, Velocity: 80},
		{Onset: 0.25, Duration: 0.1, Voice: pattern.Ride, Velocity: 80},
	})

	events := noteEvents(plan, 120, 480)
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	// first ride ends exactly where the second starts, off before on
	if events[1].on || events[1].tick != 240 {
		t.Errorf("Expected note-off at tick 240, got %+v", events[1])
	}
	if !events[2].on || events[2].tick != 240 {
		t.Errorf("Expected note-on at tick 240, got %+v", events[2])
	}
}

func TestEncodeEmptyPlan(t *testing.T) {
	data, err := Encode(pattern.NewPlan(100, nil), DefaultOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, notes, _ := decode(t, data)
	if len(notes) != 0 {
		t.Errorf("Expected no notes, got %d", len(notes))
	}
}
