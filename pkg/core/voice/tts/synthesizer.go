// Package tts provides text-to-speech provider adapters.
package tts

import (
	"context"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// Synthesizer is the interface for text-to-speech services.
type Synthesizer interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts one span of text to audio. Calls are
	// single-shot and idempotent; results are not cached.
	Synthesize(ctx context.Context, text string, opts types.VoiceOptions) (*Synthesis, error)
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio    []byte  // Audio data
	Format   string  // Audio format
	Duration float64 // Duration in seconds (if available)
}

// SynthesisStream provides streaming audio output for one synthesis call.
type SynthesisStream struct {
	chunks chan []byte
	err    error
	done   chan struct{}
}

// NewSynthesisStream creates a new synthesis stream.
func NewSynthesisStream() *SynthesisStream {
	return &SynthesisStream{
		chunks: make(chan []byte, 100),
		done:   make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err returns any error that occurred. It blocks until the stream is done.
func (s *SynthesisStream) Err() error {
	<-s.done
	return s.err
}

// Close closes the stream.
func (s *SynthesisStream) Close() error {
	select {
	case <-s.done:
		// Already closed
	default:
		close(s.done)
	}
	return nil
}

// SetError sets the stream error.
func (s *SynthesisStream) SetError(err error) {
	s.err = err
}

// Send sends a chunk to the stream. Returns false if the stream is closed.
func (s *SynthesisStream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// FinishSending closes the chunks channel to signal completion.
func (s *SynthesisStream) FinishSending() {
	close(s.chunks)
}
