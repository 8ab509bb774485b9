// Package audio normalizes captured audio into mono 16 kHz 16-bit PCM WAV.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Target format expected by the scoring backend
const (
	TargetSampleRate    = 16000
	TargetChannels      = 1
	TargetBitsPerSample = 16
	TargetBlockAlign    = TargetChannels * TargetBitsPerSample / 8
	TargetByteRate      = TargetSampleRate * TargetBlockAlign
	HeaderSize          = 44
)

// WAVE format tags
const (
	FormatPCM        uint16 = 1
	FormatIEEEFloat  uint16 = 3
	FormatExtensible uint16 = 0xFFFE
)

// ErrNotWAV is returned for input without a RIFF/WAVE header
var ErrNotWAV = errors.New("input is not a RIFF/WAVE file")

// Format is the content of a fmt chunk
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAV is a parsed RIFF/WAVE file
type WAV struct {
	Format Format
	Data   []byte
}

// IsWAV reports whether data starts with a RIFF/WAVE header
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// ParseWAV walks the chunks of a RIFF/WAVE file. Streaming writers leave the
// data size as 0 or 0xFFFFFFFF; in that case the rest of the file is the data.
func ParseWAV(data []byte) (*WAV, error) {
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		w       WAV
		haveFmt bool
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		rawSize := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		size := int(rawSize)
		body := pos + 8
		remaining := len(data) - body

		switch id {
		case "fmt ":
			if size < 16 || size > remaining {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			f := data[body : body+size]
			w.Format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(f[0:2]),
				Channels:      binary.LittleEndian.Uint16(f[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(f[4:8]),
				ByteRate:      binary.LittleEndian.Uint32(f[8:12]),
				BlockAlign:    binary.LittleEndian.Uint16(f[12:14]),
				BitsPerSample: binary.LittleEndian.Uint16(f[14:16]),
			}
			// WAVE_FORMAT_EXTENSIBLE carries the real tag in the first two bytes of the sub-format GUID
			if w.Format.AudioFormat == FormatExtensible && size >= 26 {
				w.Format.AudioFormat = binary.LittleEndian.Uint16(f[24:26])
			}
			haveFmt = true
		case "data":
			if rawSize == 0 || rawSize == 0xFFFFFFFF || size < 0 || size > remaining {
				size = remaining
			}
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			w.Data = data[body : body+size]
			return &w, nil
		}

		if size < 0 || size > remaining {
			break
		}
		// chunks are word aligned
		pos = body + size + size%2
	}

	if !haveFmt {
		return nil, errors.New("missing fmt chunk")
	}
	return nil, errors.New("missing data chunk")
}

// EncodePCM16 writes a canonical 44-byte header followed by little-endian samples
func EncodePCM16(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * 2
	out := make([]byte, HeaderSize+dataSize)
	blockAlign := channels * 2

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[HeaderSize+i*2:], uint16(s))
	}
	return out
}

// VerifyNormalized checks the header fields the scoring backend depends on
func VerifyNormalized(data []byte) error {
	w, err := ParseWAV(data)
	if err != nil {
		return err
	}
	f := w.Format
	switch {
	case f.AudioFormat != FormatPCM:
		return fmt.Errorf("format tag %d, want PCM", f.AudioFormat)
	case f.Channels != TargetChannels:
		return fmt.Errorf("%d channels, want %d", f.Channels, TargetChannels)
	case f.SampleRate != TargetSampleRate:
		return fmt.Errorf("sample rate %d, want %d", f.SampleRate, TargetSampleRate)
	case f.BitsPerSample != TargetBitsPerSample:
		return fmt.Errorf("%d bits per sample, want %d", f.BitsPerSample, TargetBitsPerSample)
	case f.ByteRate != TargetByteRate:
		return fmt.Errorf("byte rate %d, want %d", f.ByteRate, TargetByteRate)
	case f.BlockAlign != TargetBlockAlign:
		return fmt.Errorf("block align %d, want %d", f.BlockAlign, TargetBlockAlign)
	case len(w.Data)%TargetBlockAlign != 0:
		return fmt.Errorf("data size %d is not a whole number of frames", len(w.Data))
	}
	return nil
}
