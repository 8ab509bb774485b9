package audio

import (
	"context"

	"github.com/jonathan/career-roadmap/internal/apperr"
)

// Transcoder normalizes a raw capture into mono 16 kHz 16-bit PCM WAV.
// Transcode must not be called before Init has succeeded.
type Transcoder interface {
	Ready() bool
	Init(ctx context.Context) error
	Transcode(ctx context.Context, raw []byte) ([]byte, error)
}

func transcodeError(cause error) error {
	return apperr.New(apperr.TranscodeError, cause)
}

func notReady() error {
	return apperr.New(apperr.NotReady, nil)
}

// checkOutput enforces the target format on every transcoder result
func checkOutput(out []byte) ([]byte, error) {
	if err := VerifyNormalized(out); err != nil {
		return nil, transcodeError(err)
	}
	return out, nil
}
