//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/beat"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/midi"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pipeline"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorNoOnsets
	ErrorInsufficientBeats
	ErrorTimeout
	ErrorMIDI
)

const analyzeTimeout = 30 * time.Second

// beatcraftAnalyze runs tempo, beat and swing analysis on raw samples.
// Args: samples (Array|Float32Array|Float64Array), sampleRate, [channels].
// Returns: {error: number, data: object | string}
func beatcraftAnalyze(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: samples, sampleRate, [channels]")
	}

	samplesJS := args[0]
	sampleRateJS := args[1]

	if samplesJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "samples must be an Array or typed array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}

	sampleRate := sampleRateJS.Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}

	channels := 1
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		channels = args[2].Int()
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	samples, err := floatsFromJS(samplesJS, "samples")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(samples) == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "samples is empty")
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}

	w, err := audio.NewWaveform(samples, sampleRate)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, w, pipeline.DefaultOptions())
	if err != nil {
		return makeErrorResponse(errorCode(err), err.Error())
	}

	data := js.Global().Get("Object").New()
	data.Set("tempo", res.Tempo)
	data.Set("beatTimes", floatsToJS(res.BeatTimes))
	data.Set("swingRatio", res.SwingRatio)
	data.Set("strategy", string(res.Strategy))
	data.Set("seconds", res.Seconds)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

// beatcraftPattern builds a drum pattern over beat times.
// Args: beats, tempo, template ("basic"|"hihat"|"full"), velocity, swing.
// Returns: {error: number, data: {tempo, notes, midi: Uint8Array} | string}
func beatcraftPattern(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: beats, tempo, [template], [velocity], [swing]")
	}

	beats, err := floatsFromJS(args[0], "beats")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if args[1].Type() != js.TypeNumber || args[1].Float() <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, "tempo must be a positive number")
	}
	tempo := args[1].Float()

	tmpl := pattern.Basic
	if len(args) > 2 && args[2].Type() == js.TypeString {
		tmpl = pattern.ParseTemplate(args[2].String())
	}
	velocity := 100
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		velocity = args[3].Int()
	}
	swing := 0.5
	if len(args) > 4 && args[4].Type() == js.TypeNumber {
		swing = args[4].Float()
	}

	plan := pattern.Generate(beats, tempo, tmpl, velocity, swing)

	smf, err := midi.Encode(plan, midi.DefaultOptions())
	if err != nil {
		return makeErrorResponse(ErrorMIDI, fmt.Sprintf("Failed to encode MIDI: %v", err))
	}
	midiJS := js.Global().Get("Uint8Array").New(len(smf))
	js.CopyBytesToJS(midiJS, smf)

	notes := js.Global().Get("Array").New()
	for i, n := range plan.Notes() {
		obj := js.Global().Get("Object").New()
		obj.Set("onset", n.Onset)
		obj.Set("duration", n.Duration)
		obj.Set("voice", n.Voice.String())
		obj.Set("key", int(n.Voice.MIDINote()))
		obj.Set("velocity", n.Velocity)
		notes.SetIndex(i, obj)
	}

	data := js.Global().Get("Object").New()
	data.Set("tempo", plan.Tempo())
	data.Set("template", tmpl.String())
	data.Set("notes", notes)
	data.Set("midi", midiJS)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, beat.ErrNoOnsets):
		return ErrorNoOnsets
	case errors.Is(err, beat.ErrInsufficientBeats):
		return ErrorInsufficientBeats
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	default:
		return ErrorProcessing
	}
}

func floatsFromJS(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or typed array", name)
	}
	length := v.Length()
	out := make([]float64, length)
	for i := 0; i < length; i++ {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		out[i] = val.Float()
	}
	return out, nil
}

func floatsToJS(xs []float64) js.Value {
	arr := js.Global().Get("Array").New(len(xs))
	for i, x := range xs {
		arr.SetIndex(i, x)
	}
	return arr
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}

	logf("log", "BeatCraft WASM module initializing...")

	done := make(chan struct{})

	js.Global().Set("beatcraftAnalyze", js.FuncOf(beatcraftAnalyze))
	js.Global().Set("beatcraftPattern", js.FuncOf(beatcraftPattern))
	logf("log", "beatcraftAnalyze and beatcraftPattern registered")

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		logf("log", "wasmReady event dispatched")
	} else {
		logf("error", "window object is undefined!")
	}

	<-done
}
