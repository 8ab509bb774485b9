package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PCMTranscoder normalizes RIFF/WAVE input in pure Go. It accepts integer PCM
// at 8, 16, 24 or 32 bits and IEEE float at 32 or 64 bits, any channel count
// and any sample rate.
type PCMTranscoder struct{}

// NewPCMTranscoder returns a PCM transcoder; it needs no initialization
func NewPCMTranscoder() *PCMTranscoder {
	return &PCMTranscoder{}
}

// Ready is always true
func (p *PCMTranscoder) Ready() bool { return true }

// Init does nothing
func (p *PCMTranscoder) Init(context.Context) error { return nil }

// Transcode downmixes to mono, resamples linearly to 16 kHz and quantizes to 16 bits
func (p *PCMTranscoder) Transcode(ctx context.Context, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, transcodeError(errors.New("empty capture"))
	}
	w, err := ParseWAV(raw)
	if err != nil {
		return nil, transcodeError(err)
	}
	if isTargetFormat(w.Format) {
		data := w.Data[:len(w.Data)-len(w.Data)%TargetBlockAlign]
		if len(data) == 0 {
			return nil, transcodeError(errors.New("no audio frames"))
		}
		return checkOutput(withCanonicalHeader(data))
	}

	mono, err := decodeMono(w)
	if err != nil {
		return nil, transcodeError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, transcodeError(err)
	}

	resampled := resampleLinear(mono, int(w.Format.SampleRate), TargetSampleRate)
	return checkOutput(EncodePCM16(quantize16(resampled), TargetSampleRate, TargetChannels))
}

// decodeMono converts interleaved frames to mono samples in [-1, 1]
func decodeMono(w *WAV) ([]float64, error) {
	f := w.Format
	if f.Channels == 0 {
		return nil, errors.New("zero channels")
	}
	if f.SampleRate == 0 {
		return nil, errors.New("zero sample rate")
	}

	bytesPerSample := int(f.BitsPerSample) / 8
	var read func(b []byte) float64
	switch {
	case f.AudioFormat == FormatPCM && f.BitsPerSample == 8:
		read = func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }
	case f.AudioFormat == FormatPCM && f.BitsPerSample == 16:
		read = func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / 32768 }
	case f.AudioFormat == FormatPCM && f.BitsPerSample == 24:
		read = func(b []byte) float64 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float64(v) / 8388608
		}
	case f.AudioFormat == FormatPCM && f.BitsPerSample == 32:
		read = func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648 }
	case f.AudioFormat == FormatIEEEFloat && f.BitsPerSample == 32:
		read = func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }
	case f.AudioFormat == FormatIEEEFloat && f.BitsPerSample == 64:
		read = func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", f.AudioFormat, f.BitsPerSample)
	}

	channels := int(f.Channels)
	frameSize := bytesPerSample * channels
	frames := len(w.Data) / frameSize
	if frames == 0 {
		return nil, errors.New("no audio frames")
	}

	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		frame := w.Data[i*frameSize : (i+1)*frameSize]
		var sum float64
		for c := 0; c < channels; c++ {
			sum += read(frame[c*bytesPerSample : (c+1)*bytesPerSample])
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}

// resampleLinear converts between rates by linear interpolation
func resampleLinear(in []float64, from, to int) []float64 {
	if from == to || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		n = 1
	}
	out := make([]float64, n)
	step := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func quantize16(in []float64) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		if math.IsNaN(v) {
			v = 0
		}
		s := math.Round(v * 32767)
		switch {
		case s > math.MaxInt16:
			s = math.MaxInt16
		case s < math.MinInt16:
			s = math.MinInt16
		}
		out[i] = int16(s)
	}
	return out
}

func isTargetFormat(f Format) bool {
	return f.AudioFormat == FormatPCM && f.Channels == TargetChannels &&
		f.SampleRate == TargetSampleRate && f.BitsPerSample == TargetBitsPerSample
}

// withCanonicalHeader wraps 16-bit mono 16 kHz sample bytes in a 44-byte header
func withCanonicalHeader(data []byte) []byte {
	out := EncodePCM16(nil, TargetSampleRate, TargetChannels)
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(data)))
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(data)))
	return append(out, data...)
}
