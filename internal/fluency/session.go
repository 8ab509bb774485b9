package fluency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/audio"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/types"
)

// State is a recording session state
type State string

// Session states
const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateConverting State = "converting"
	StateScoring    State = "scoring"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Terminal reports whether s is Succeeded or Failed
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// TransitionError reports an illegal state change
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal fluency session transition %s -> %s", e.From, e.To)
}

// DefaultTickInterval is the elapsed-time counter period
const DefaultTickInterval = time.Second

// SessionOption configures a Session
type SessionOption func(*Session)

// WithTickHandler is called on every tick with the elapsed whole seconds
func WithTickHandler(fn func(elapsed int)) SessionOption {
	return func(s *Session) { s.onTick = fn }
}

// WithStateHandler is called after every state transition
func WithStateHandler(fn func(State)) SessionOption {
	return func(s *Session) { s.onState = fn }
}

// WithTickInterval overrides the tick period
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(l *logging.Logger) SessionOption {
	return func(s *Session) { s.logger = logging.OrNop(l) }
}

// WithSessionMetrics records stage durations and outcomes
func WithSessionMetrics(m *metrics.Manager) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session is one recording: Idle -> Recording -> Converting -> Scoring ->
// Succeeded | Failed. The capture device is released on every path out of
// Recording, including Close.
type Session struct {
	transcoder audio.Transcoder
	scorer     Scorer
	opener     Opener
	language   string

	tickInterval time.Duration
	onTick       func(int)
	onState      func(State)
	logger       *logging.Logger
	metrics      *metrics.Manager

	mu      sync.Mutex
	state   State
	result  *types.FluencyResult
	err     error
	started time.Time
	// set by the first Stop of a recording
	stopping bool

	elapsed     atomic.Int64
	device      Device
	releaseOnce *sync.Once
	stopTicker  context.CancelFunc
	tickerDone  chan struct{}
	captureDone chan struct{}
	captureErr  error
	buf         bytes.Buffer
}

// NewSession builds an idle session
func NewSession(transcoder audio.Transcoder, scorer Scorer, opener Opener, language string, opts ...SessionOption) *Session {
	if language == "" {
		language = DefaultLanguage
	}
	s := &Session{
		transcoder:   transcoder,
		scorer:       scorer,
		opener:       opener,
		language:     language,
		tickInterval: DefaultTickInterval,
		logger:       logging.Nop(),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("fluency")
	return s
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the whole seconds recorded so far; zero outside Recording
func (s *Session) Elapsed() int {
	return int(s.elapsed.Load())
}

// Result returns the score of a Succeeded session, or nil
func (s *Session) Result() *types.FluencyResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSucceeded {
		return nil
	}
	return s.result
}

// Err returns the failure of a Failed session, or nil
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFailed {
		return nil
	}
	return s.err
}

// transition moves from one of the allowed states to to
func (s *Session) transition(to State, from ...State) error {
	s.mu.Lock()
	cur := s.state
	ok := false
	for _, f := range from {
		if cur == f {
			ok = true
			break
		}
	}
	if !ok {
		s.mu.Unlock()
		return &TransitionError{From: cur, To: to}
	}
	s.state = to
	s.mu.Unlock()
	s.notify(to)
	return nil
}

func (s *Session) notify(state State) {
	s.logger.Debug("session state", "state", string(state))
	if s.onState != nil {
		s.onState(state)
	}
}

// Start opens the device and begins recording. It fails with NotReady while
// the transcoder is initializing, leaving the session Idle, and with
// PermissionDenied when the device refuses to open.
func (s *Session) Start(ctx context.Context) error {
	if st := s.State(); st != StateIdle {
		return &TransitionError{From: st, To: StateRecording}
	}
	if s.transcoder == nil || !s.transcoder.Ready() {
		return apperr.New(apperr.NotReady, nil)
	}

	device, err := s.opener.Open(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.Unknown {
			err = apperr.New(apperr.PermissionDenied, err)
		}
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		cur := s.state
		s.mu.Unlock()
		_ = device.Release()
		return &TransitionError{From: cur, To: StateRecording}
	}
	s.state = StateRecording
	s.started = time.Now()
	s.device = device
	s.releaseOnce = &sync.Once{}
	s.stopping = false
	s.buf.Reset()
	s.captureErr = nil
	s.elapsed.Store(0)

	tickCtx, cancel := context.WithCancel(ctx)
	s.stopTicker = cancel
	s.tickerDone = make(chan struct{})
	s.captureDone = make(chan struct{})
	go s.tick(tickCtx, s.tickerDone)
	go s.capture(device, s.captureDone)
	s.mu.Unlock()

	s.notify(StateRecording)
	s.logger.Info("recording started", "language", s.language)
	return nil
}

func (s *Session) tick(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.elapsed.Add(1)
			if s.onTick != nil {
				s.onTick(int(n))
			}
		}
	}
}

func (s *Session) capture(device Device, done chan<- struct{}) {
	defer close(done)
	// buf is only read after done is closed
	s.captureErr = device.Record(&s.buf)
}

// endRecording stops the ticker, releases the device and joins the capture
// goroutine. It is idempotent and returns how long the device was open.
func (s *Session) endRecording() time.Duration {
	s.mu.Lock()
	stop, tickerDone, captureDone := s.stopTicker, s.tickerDone, s.captureDone
	device, once, started := s.device, s.releaseOnce, s.started
	s.stopTicker = nil
	s.mu.Unlock()

	if captureDone == nil {
		return 0
	}
	if stop != nil {
		stop()
		<-tickerDone
		s.elapsed.Store(0)
	}

	once.Do(func() {
		if err := device.Release(); err != nil {
			s.logger.Warn("failed to release capture device", "error", err)
		}
	})
	<-captureDone
	return time.Since(started)
}

// Stop ends the recording, then converts and scores the capture. The device
// is released before conversion starts, whatever the outcome.
func (s *Session) Stop(ctx context.Context) (*types.FluencyResult, error) {
	s.mu.Lock()
	if s.state != StateRecording || s.stopping {
		cur := s.state
		s.mu.Unlock()
		return nil, &TransitionError{From: cur, To: StateConverting}
	}
	s.stopping = true
	s.mu.Unlock()

	captured := s.endRecording()
	s.metrics.ObserveFluencyStage("capture", captured)

	if s.captureErr != nil {
		return nil, s.fail(apperr.Newf(apperr.PermissionDenied, s.captureErr, "Recording was interrupted"))
	}
	raw := s.buf.Bytes()
	if len(raw) == 0 {
		return nil, s.fail(apperr.Newf(apperr.TranscodeError, errors.New("empty capture"), "No audio was recorded"))
	}

	if err := s.transition(StateConverting, StateRecording); err != nil {
		return nil, err
	}
	start := time.Now()
	wav, err := s.transcoder.Transcode(ctx, raw)
	s.metrics.ObserveFluencyStage("convert", time.Since(start))
	if err != nil {
		if apperr.KindOf(err) == apperr.Unknown {
			err = apperr.New(apperr.TranscodeError, err)
		}
		return nil, s.fail(err)
	}
	s.metrics.ObserveNormalizedBytes(len(wav))

	if err := s.transition(StateScoring, StateConverting); err != nil {
		return nil, err
	}
	start = time.Now()
	result, err := s.scorer.Score(ctx, wav, s.language)
	s.metrics.ObserveFluencyStage("score", time.Since(start))
	if err != nil {
		if apperr.KindOf(err) == apperr.Unknown {
			err = apperr.New(apperr.NetworkError, err)
		}
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.state = StateSucceeded
	s.result = result
	s.err = nil
	s.mu.Unlock()
	s.notify(StateSucceeded)

	s.metrics.ObserveFluencySession(metrics.OutcomeSuccess)
	s.logger.Info("fluency scored",
		"captured_bytes", len(raw),
		"normalized_bytes", len(wav),
		"words", len(result.WordWiseScore),
		"pronunciation", result.Score.PronunciationScore,
	)
	return result, nil
}

// fail moves to Failed and records err
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.err = err
	s.result = nil
	s.mu.Unlock()
	s.notify(StateFailed)

	kind := apperr.KindOf(err)
	s.metrics.ObserveFluencySession(string(kind))
	s.logger.Warn("fluency session failed", "kind", string(kind), "error", err)
	return err
}

// Reset returns a terminal session to Idle
func (s *Session) Reset() error {
	s.mu.Lock()
	cur := s.state
	switch {
	case cur == StateIdle:
		s.mu.Unlock()
		return nil
	case !cur.Terminal():
		s.mu.Unlock()
		return &TransitionError{From: cur, To: StateIdle}
	}
	s.state = StateIdle
	s.result = nil
	s.err = nil
	s.mu.Unlock()
	s.notify(StateIdle)
	return nil
}

// Close tears the session down. A recording in progress is abandoned and the
// session returns to Idle; the device is released in every case.
func (s *Session) Close() error {
	s.endRecording()
	s.mu.Lock()
	abandoned := s.state == StateRecording && !s.stopping
	if abandoned {
		s.state = StateIdle
	}
	s.mu.Unlock()
	if abandoned {
		s.notify(StateIdle)
		s.logger.Info("recording abandoned")
	}
	return nil
}
