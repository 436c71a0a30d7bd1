package tts

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// MockSynthesizer is a scripted synthesizer for tests. Latency and
// failures can be assigned per call index to exercise out-of-order
// completion and partial-failure handling.
type MockSynthesizer struct {
	// Latency maps call index (0-based, in Synthesize call order) to an
	// artificial delay. Calls without an entry return immediately.
	Latency map[int]time.Duration

	// FailIndices marks call indices whose synthesis fails.
	FailIndices map[int]bool

	calls atomic.Int64

	mu    sync.Mutex
	texts []string
}

// Name returns the provider identifier.
func (m *MockSynthesizer) Name() string {
	return "mock"
}

// Synthesize returns the input text as fake audio bytes after the
// scripted delay, or fails if the call index is marked.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string, opts types.VoiceOptions) (*Synthesis, error) {
	call := int(m.calls.Add(1)) - 1

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if delay, ok := m.Latency[call]; ok && delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.FailIndices[call] {
		return nil, fmt.Errorf("scripted failure for call %d", call)
	}

	return &Synthesis{
		Audio:  []byte("audio:" + text),
		Format: "pcm",
	}, nil
}

// Calls returns how many synthesis calls were made.
func (m *MockSynthesizer) Calls() int {
	return int(m.calls.Load())
}

// Texts returns the synthesized texts in call order.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}
