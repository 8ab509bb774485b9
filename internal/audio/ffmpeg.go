package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/jonathan/career-roadmap/internal/logging"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultFFmpegBinary is looked up on PATH
const DefaultFFmpegBinary = "ffmpeg"

// FFmpegTranscoder pipes compressed captures (webm/opus, ogg, mp4/aac, ...) through ffmpeg
type FFmpegTranscoder struct {
	binary  string
	path    string
	version string
	ready   atomic.Bool
	logger  *logging.Logger
}

// NewFFmpegTranscoder returns a transcoder for binary (DefaultFFmpegBinary when empty).
// It is not ready until Init succeeds.
func NewFFmpegTranscoder(binary string, logger *logging.Logger) *FFmpegTranscoder {
	if binary == "" {
		binary = DefaultFFmpegBinary
	}
	return &FFmpegTranscoder{binary: binary, logger: logging.OrNop(logger).Named("ffmpeg")}
}

// Ready reports whether Init found a working ffmpeg
func (t *FFmpegTranscoder) Ready() bool {
	return t.ready.Load()
}

// Init resolves the binary and checks that it runs
func (t *FFmpegTranscoder) Init(ctx context.Context) error {
	path, err := exec.LookPath(t.binary)
	if err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", t.binary, err)
	}

	cmd := exec.CommandContext(ctx, path, "-version", "-hide_banner")
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg -version failed: %w: %s", err, strings.TrimSpace(errOut.String()))
	}

	t.path = path
	t.version, _, _ = strings.Cut(out.String(), "\n")
	t.ready.Store(true)
	t.logger.Info("ffmpeg ready", "path", path, "version", t.version)
	return nil
}

// Transcode runs ffmpeg with stdin and stdout as pipes. The process is killed
// when ctx is done.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, raw []byte) ([]byte, error) {
	if !t.Ready() {
		return nil, notReady()
	}
	if len(raw) == 0 {
		return nil, transcodeError(errors.New("empty capture"))
	}

	var out, stderr bytes.Buffer
	cmd := ffmpeg.Input("pipe:0").
		Output("pipe:1", ffmpeg.KwArgs{
			"ac":           TargetChannels,
			"ar":           TargetSampleRate,
			"acodec":       "pcm_s16le",
			"f":            "wav",
			"map_metadata": "-1",
			"fflags":       "+bitexact",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		WithInput(bytes.NewReader(raw)).
		WithOutput(&out, &stderr).
		Compile()
	cmd.Path = t.path
	cmd.Err = nil

	if err := cmd.Start(); err != nil {
		return nil, transcodeError(fmt.Errorf("start ffmpeg: %w", err))
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return nil, transcodeError(ctx.Err())
	case err := <-done:
		if err != nil {
			t.logger.Warn("ffmpeg failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
			return nil, transcodeError(fmt.Errorf("ffmpeg: %w", err))
		}
	}

	// ffmpeg cannot seek back on a pipe to patch the RIFF and data sizes
	w, err := ParseWAV(out.Bytes())
	if err != nil {
		return nil, transcodeError(err)
	}
	data := w.Data[:len(w.Data)-len(w.Data)%TargetBlockAlign]
	if len(data) == 0 {
		return nil, transcodeError(errors.New("ffmpeg produced no audio"))
	}
	return checkOutput(withCanonicalHeader(data))
}
