package text

import (
	"context"
	"io"
	"time"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// MockSource is a scripted text source for tests. It replays Fragments
// in order, optionally pausing between them, and can fail after a given
// number of fragments to exercise provider-error handling.
type MockSource struct {
	Fragments []string
	Delay     time.Duration // pause before each fragment
	FailAfter int           // fail after this many fragments (0 = never)
	FailWith  error         // error to fail with; defaults to a provider error
}

// Name returns the provider identifier.
func (m *MockSource) Name() string {
	return "mock"
}

// GenerateStream returns a stream that replays the scripted fragments.
func (m *MockSource) GenerateStream(ctx context.Context, prompt string, history []types.Message) (DeltaStream, error) {
	return &mockDeltaStream{src: m, ctx: ctx}, nil
}

type mockDeltaStream struct {
	src    *MockSource
	ctx    context.Context
	pos    int
	closed bool
}

func (s *mockDeltaStream) Next() (string, error) {
	if s.closed {
		return "", io.EOF
	}
	if s.src.FailAfter > 0 && s.pos >= s.src.FailAfter {
		err := s.src.FailWith
		if err == nil {
			err = core.NewProviderError("mock", errUpstream)
		}
		return "", err
	}
	if s.pos >= len(s.src.Fragments) {
		return "", io.EOF
	}
	if s.src.Delay > 0 {
		select {
		case <-time.After(s.src.Delay):
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	frag := s.src.Fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *mockDeltaStream) Close() error {
	s.closed = true
	return nil
}

var errUpstream = &upstreamError{}

type upstreamError struct{}

func (e *upstreamError) Error() string { return "upstream generation failed" }
