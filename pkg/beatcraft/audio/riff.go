package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// riffFormat holds the format information from the fmt chunk
type riffFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// RIFFDecoder walks RIFF chunks by hand. It covers what the go-audio decoder
// rejects: IEEE float and WAVE_FORMAT_EXTENSIBLE files.
type RIFFDecoder struct{}

func (RIFFDecoder) Name() string { return "riff" }

func (RIFFDecoder) Decode(_ context.Context, data []byte) ([]float64, int, error) {
	r := bytes.NewReader(data)

	if err := readRIFFHeader(r); err != nil {
		return nil, 0, err
	}

	format, pcm, err := scanChunks(r)
	if err != nil {
		return nil, 0, err
	}
	if format.NumChannels == 0 {
		return nil, 0, errors.New("fmt chunk declares zero channels")
	}

	interleaved, err := pcmToFloat(pcm, format.AudioFormat, format.BitsPerSample)
	if err != nil {
		return nil, 0, err
	}

	return downmix(interleaved, int(format.NumChannels)), int(format.SampleRate), nil
}

func hasRIFFHeader(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// readRIFFHeader reads and validates the RIFF/WAVE header (12 bytes)
func readRIFFHeader(r io.Reader) error {
	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("reading RIFF header: %w", errNotRecognized)
	}
	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return fmt.Errorf("not a WAV/RIFF file: %w", errNotRecognized)
	}
	return nil
}

// readFmtChunk reads the fmt chunk. For extensible files the real format
// tag is the first two bytes of the sub-format GUID.
func readFmtChunk(r io.ReadSeeker, chunkSize uint32) (*riffFormat, error) {
	var raw struct {
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if chunkSize < 16 {
		return nil, fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("reading fmt chunk: %w", err)
	}

	format := &riffFormat{
		AudioFormat:   raw.AudioFormat,
		NumChannels:   raw.NumChannels,
		SampleRate:    raw.SampleRate,
		BitsPerSample: raw.BitsPerSample,
	}

	remaining := int64(chunkSize) - 16
	if raw.AudioFormat == wavFormatExtensible && remaining >= 10 {
		// cbSize(2) validBits(2) channelMask(4) subFormat(16)
		var ext struct {
			CbSize      uint16
			ValidBits   uint16
			ChannelMask uint32
			SubFormat   uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, fmt.Errorf("reading extensible fmt: %w", err)
		}
		format.AudioFormat = ext.SubFormat
		remaining -= 10
	}

	if remaining > 0 {
		if _, err := r.Seek(remaining, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}
	return format, nil
}

// scanChunks scans through WAV chunks to find fmt and data chunks
func scanChunks(r *bytes.Reader) (*riffFormat, []byte, error) {
	var format *riffFormat
	var data []byte

	for format == nil || data == nil {
		var header struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("reading chunk header: %w", err)
		}

		switch id := string(header.ID[:]); id {
		case "fmt ":
			f, err := readFmtChunk(r, header.Size)
			if err != nil {
				return nil, nil, err
			}
			format = f

		case "data":
			size := int(header.Size)
			// Streamed files often carry a bogus data size; clamp to what is there.
			if size > r.Len() {
				size = r.Len()
			}
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, nil, fmt.Errorf("reading data chunk: %w", err)
			}

		default:
			// LIST, INFO, junk
			if _, err := r.Seek(int64(header.Size), io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("skipping chunk %s: %w", id, err)
			}
		}

		if header.Size%2 == 1 && r.Len() > 0 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("seeking pad byte: %w", err)
			}
		}
	}

	if format == nil {
		return nil, nil, errors.New("fmt chunk not found")
	}
	if data == nil {
		return nil, nil, errors.New("data chunk not found")
	}
	return format, data, nil
}

// pcmToFloat converts little-endian sample bytes to floats in [-1, 1].
func pcmToFloat(data []byte, audioFormat, bits uint16) ([]float64, error) {
	switch {
	case audioFormat == wavFormatIEEEFloat && bits == 32:
		out := make([]float64, len(data)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
		}
		return out, nil

	case audioFormat == wavFormatIEEEFloat && bits == 64:
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return out, nil

	case audioFormat == wavFormatPCM && bits == 8:
		out := make([]float64, len(data))
		for i, b := range data {
			out[i] = (float64(b) - 128) / 128
		}
		return out, nil

	case audioFormat == wavFormatPCM && bits == 16:
		out := make([]float64, len(data)/2)
		for i := range out {
			out[i] = float64(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768
		}
		return out, nil

	case audioFormat == wavFormatPCM && bits == 24:
		out := make([]float64, len(data)/3)
		for i := range out {
			b := data[3*i:]
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			out[i] = float64(v) / (1 << 23)
		}
		return out, nil

	case audioFormat == wavFormatPCM && bits == 32:
		out := make([]float64, len(data)/4)
		for i := range out {
			out[i] = float64(int32(binary.LittleEndian.Uint32(data[4*i:]))) / (1 << 31)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", audioFormat, bits)
}
