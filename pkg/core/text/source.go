// Package text wraps streaming text-generation providers.
package text

import (
	"context"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// Source is the interface for streaming text-generation providers.
type Source interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// GenerateStream starts one generation turn. The returned stream is
	// finite and not restartable; a new call creates a new stream.
	GenerateStream(ctx context.Context, prompt string, history []types.Message) (DeltaStream, error)
}

// DeltaStream is an iterator over text deltas for a single turn.
type DeltaStream interface {
	// Next returns the next text delta. Returns "", io.EOF when the turn
	// is complete. Any other error is a provider failure and terminates
	// the stream.
	Next() (string, error)

	// Close releases resources.
	Close() error
}
