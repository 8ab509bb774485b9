package audio

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jonathan/career-roadmap/internal/logging"
)

// AutoTranscoder routes WAV input to the PCM path and everything else to a
// fallback such as ffmpeg. It reports ready once Init has run, even when the
// fallback failed to initialize; compressed input then fails with TranscodeError.
type AutoTranscoder struct {
	pcm      *PCMTranscoder
	fallback Transcoder
	ready    atomic.Bool
	logger   *logging.Logger
}

// NewAutoTranscoder combines the PCM path with fallback, which may be nil
func NewAutoTranscoder(fallback Transcoder, logger *logging.Logger) *AutoTranscoder {
	return &AutoTranscoder{
		pcm:      NewPCMTranscoder(),
		fallback: fallback,
		logger:   logging.OrNop(logger).Named("transcoder"),
	}
}

// Ready reports whether Init has finished
func (a *AutoTranscoder) Ready() bool {
	return a.ready.Load()
}

// Init initializes the fallback. A fallback failure is logged, not returned,
// so WAV captures keep working.
func (a *AutoTranscoder) Init(ctx context.Context) error {
	if a.fallback != nil {
		if err := a.fallback.Init(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			a.logger.Warn("compressed audio disabled, only WAV captures are accepted", "error", err)
		}
	}
	a.ready.Store(true)
	return nil
}

// Transcode picks the path by sniffing the RIFF/WAVE header
func (a *AutoTranscoder) Transcode(ctx context.Context, raw []byte) ([]byte, error) {
	if !a.Ready() {
		return nil, notReady()
	}
	if IsWAV(raw) {
		out, err := a.pcm.Transcode(ctx, raw)
		if err == nil || a.fallback == nil || !a.fallback.Ready() {
			return out, err
		}
		// extensible or exotic WAV encodings are left to the fallback
		a.logger.Debug("PCM path rejected WAV input, trying fallback", "error", err)
	}
	if a.fallback == nil || !a.fallback.Ready() {
		return nil, transcodeError(errors.New("compressed audio requires ffmpeg, which is unavailable"))
	}
	return a.fallback.Transcode(ctx, raw)
}
