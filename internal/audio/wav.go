// Package audio implements the minimal WAV handling the pipeline needs:
// decoding provider output, frame-level concatenation, and duration
// computed from the assembled stream.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotWAV         = errors.New("data is not a RIFF/WAVE stream")
	ErrFormatMismatch = errors.New("chunks have mismatched audio formats")
)

const (
	headerSize     = 44
	bytesPerSample = 2 // PCM 16-bit LE only
)

// Wave is decoded PCM audio: the raw frame data plus the format needed to
// interpret it.
type Wave struct {
	SampleRate int
	Channels   int
	Data       []byte
}

// Duration returns the playback length in seconds, computed from the frame
// data itself rather than any provider-reported figure.
func (w Wave) Duration() float64 {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return 0
	}
	return float64(len(w.Data)) / float64(w.SampleRate*w.Channels*bytesPerSample)
}

// Decode parses a WAV file into a Wave. Only PCM 16-bit is accepted; that is
// the one synthesis format every provider is configured to emit.
func Decode(data []byte) (Wave, error) {
	if len(data) < headerSize {
		return Wave{}, ErrNotWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Wave{}, ErrNotWAV
	}

	// Walk the chunk list; fmt and data may be separated by optional chunks.
	var (
		sampleRate int
		channels   int
		bits       int
		frames     []byte
		sawFmt     bool
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			return Wave{}, fmt.Errorf("%w: truncated %q chunk", ErrNotWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Wave{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return Wave{}, fmt.Errorf("%w: unsupported format code %d", ErrNotWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			sawFmt = true
		case "data":
			frames = data[body : body+size]
		}
		// Chunks are word-aligned.
		offset = body + size + size%2
	}

	if !sawFmt || frames == nil {
		return Wave{}, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	if bits != 16 {
		return Wave{}, fmt.Errorf("%w: unsupported bit depth %d", ErrNotWAV, bits)
	}
	return Wave{SampleRate: sampleRate, Channels: channels, Data: frames}, nil
}

// Encode serializes a Wave into a complete WAV file.
func Encode(w Wave) []byte {
	out := make([]byte, headerSize+len(w.Data))
	byteRate := w.SampleRate * w.Channels * bytesPerSample
	blockAlign := w.Channels * bytesPerSample

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(w.Data)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(w.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(w.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bytesPerSample*8)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(w.Data)))
	copy(out[headerSize:], w.Data)
	return out
}

// Concat appends waves at the frame level into one stream. Every wave must
// share the first wave's sample rate and channel count; the caller enforces
// one synthesis configuration per job, so a mismatch is a hard error.
func Concat(waves []Wave) (Wave, error) {
	if len(waves) == 0 {
		return Wave{}, errors.New("no audio to concatenate")
	}
	out := Wave{SampleRate: waves[0].SampleRate, Channels: waves[0].Channels}
	total := 0
	for _, w := range waves {
		if w.SampleRate != out.SampleRate || w.Channels != out.Channels {
			return Wave{}, fmt.Errorf("%w: %dHz/%dch vs %dHz/%dch",
				ErrFormatMismatch, w.SampleRate, w.Channels, out.SampleRate, out.Channels)
		}
		total += len(w.Data)
	}
	out.Data = make([]byte, 0, total)
	for _, w := range waves {
		out.Data = append(out.Data, w.Data...)
	}
	return out, nil
}
