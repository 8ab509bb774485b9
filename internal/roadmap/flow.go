package roadmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/types"
)

// State is a roadmap flow state
type State string

// Flow states
const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
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
	return fmt.Sprintf("illegal roadmap flow transition %s -> %s", e.From, e.To)
}

// Flow tracks one submission at a time: Idle -> Requesting -> Succeeded | Failed.
// A terminal state is left only through Reset, which a new submission performs.
type Flow struct {
	mu      sync.Mutex
	state   State
	roadmap *types.CareerRoadmap
	err     error
}

// NewFlow returns an idle flow
func NewFlow() *Flow {
	return &Flow{state: StateIdle}
}

// State returns the current state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Roadmap returns the roadmap of a Succeeded flow, or nil in any other state
func (f *Flow) Roadmap() *types.CareerRoadmap {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSucceeded {
		return nil
	}
	return f.roadmap
}

// Err returns the failure of a Failed flow, or nil
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateFailed {
		return nil
	}
	return f.err
}

// Begin moves Idle -> Requesting
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return &TransitionError{From: f.state, To: StateRequesting}
	}
	f.state = StateRequesting
	f.roadmap, f.err = nil, nil
	return nil
}

// Succeed moves Requesting -> Succeeded
func (f *Flow) Succeed(r *types.CareerRoadmap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateRequesting {
		return &TransitionError{From: f.state, To: StateSucceeded}
	}
	if r == nil {
		f.state = StateFailed
		f.err = apperr.New(apperr.GenerationFailed, nil)
		return nil
	}
	f.state = StateSucceeded
	f.roadmap = r
	return nil
}

// Fail moves Requesting -> Failed
func (f *Flow) Fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateRequesting {
		return &TransitionError{From: f.state, To: StateFailed}
	}
	if err == nil {
		err = apperr.New(apperr.GenerationFailed, nil)
	}
	f.state = StateFailed
	f.err = err
	return nil
}

// Reset moves a terminal flow back to Idle and drops its result
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateIdle {
		return nil
	}
	if !f.state.Terminal() {
		return &TransitionError{From: f.state, To: StateIdle}
	}
	f.state = StateIdle
	f.roadmap, f.err = nil, nil
	return nil
}

// Submit runs one submission through svc. A terminal flow is reset first;
// a flow that is still Requesting rejects the submission.
func (f *Flow) Submit(ctx context.Context, svc Service, req types.RoadmapRequest) (*types.CareerRoadmap, error) {
	if err := f.Reset(); err != nil {
		return nil, err
	}
	if err := f.Begin(); err != nil {
		return nil, err
	}

	r, err := svc.Generate(ctx, req)
	if err != nil {
		_ = f.Fail(err)
		return nil, f.Err()
	}
	_ = f.Succeed(r)
	if f.State() == StateFailed {
		return nil, f.Err()
	}
	return r, nil
}
