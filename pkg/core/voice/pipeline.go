package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/internal/observability"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/text"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/voice/tts"
)

// DefaultLookahead is the number of chunks allowed to race ahead of the
// oldest undelivered chunk before the pipeline blocks for it.
const DefaultLookahead = 2

// PipelineOptions configures a voice pipeline.
type PipelineOptions struct {
	// Strategy selects the chunking parameter set. Ignored when Params
	// is set.
	Strategy Strategy

	// Params overrides the strategy with explicit chunking parameters.
	Params *ChunkingParams

	// Lookahead is the reorder window; 0 means fully sequential (one
	// synthesis in flight at a time).
	Lookahead int

	// Voice selects the synthesis voice and delivery parameters.
	Voice types.VoiceOptions
}

// DefaultPipelineOptions returns the balanced strategy with the default
// lookahead window.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Strategy:  StrategyBalanced,
		Lookahead: DefaultLookahead,
	}
}

// Pipeline streams a spoken response for a prompt: text deltas are cut
// into chunks, each chunk's synthesis starts the moment it is cut, and
// completed audio is delivered to the caller strictly in chunk order.
type Pipeline struct {
	source text.Source
	synth  tts.Synthesizer
	opts   PipelineOptions
	params ChunkingParams
	logger zerolog.Logger
}

// NewPipeline creates a voice pipeline. The synthesizer should already
// be wrapped with provider throttling if the lookahead window alone
// does not respect provider limits (see tts.NewThrottled).
func NewPipeline(source text.Source, synth tts.Synthesizer, opts PipelineOptions, logger zerolog.Logger) (*Pipeline, error) {
	if source == nil {
		return nil, core.NewConfigurationError("text source is required")
	}
	if synth == nil {
		return nil, core.NewConfigurationError("synthesizer is required")
	}
	if opts.Lookahead < 0 {
		return nil, core.NewConfigurationError("lookahead must be >= 0")
	}

	params := ChunkingParams{}
	if opts.Params != nil {
		params = *opts.Params
	} else {
		var err error
		params, err = ParamsForStrategy(opts.Strategy)
		if err != nil {
			return nil, err
		}
	}
	// Construction catches bad parameters up front.
	if _, err := NewChunker(params); err != nil {
		return nil, err
	}

	return &Pipeline{
		source: source,
		synth:  synth,
		opts:   opts,
		params: params,
		logger: logger,
	}, nil
}

// pendingSynthesis associates a chunk index with its in-flight
// synthesis outcome. Entries live from launch until their audio (or
// failure) has been delivered or logged.
type pendingSynthesis struct {
	chunk types.TextChunk
	audio *tts.Synthesis
	err   error
	done  chan struct{}
}

// VoiceStream is a pull-based sequence of AudioChunks in strictly
// ascending index order. Indices may have gaps where a single chunk's
// synthesis failed; a text-source failure terminates the stream with
// an error.
type VoiceStream struct {
	ch     chan types.AudioChunk
	cancel context.CancelFunc

	errMu sync.Mutex
	err   error

	startedAt  time.Time
	statMu     sync.Mutex
	firstText  time.Time
	firstAudio time.Time
	skipped    int
}

// Next returns the next audio chunk. Returns nil, io.EOF at the clean
// end of the turn, or the terminal error if text generation failed.
func (s *VoiceStream) Next() (*types.AudioChunk, error) {
	chunk, open := <-s.ch
	if !open {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	s.statMu.Lock()
	if s.firstAudio.IsZero() {
		s.firstAudio = time.Now()
		observability.RecordFirstAudio(s.firstAudio.Sub(s.startedAt))
	}
	s.statMu.Unlock()
	return &chunk, nil
}

// Close stops the stream: no new syntheses are launched and in-flight
// requests are abandoned. Safe to call more than once.
func (s *VoiceStream) Close() error {
	s.cancel()
	return nil
}

// Err returns the terminal error, if any.
func (s *VoiceStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *VoiceStream) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *VoiceStream) markFirstText() {
	s.statMu.Lock()
	if s.firstText.IsZero() {
		s.firstText = time.Now()
	}
	s.statMu.Unlock()
}

func (s *VoiceStream) noteSkipped() {
	s.statMu.Lock()
	s.skipped++
	s.statMu.Unlock()
}

// SkippedChunks returns how many chunks were dropped because their
// synthesis failed.
func (s *VoiceStream) SkippedChunks() int {
	s.statMu.Lock()
	defer s.statMu.Unlock()
	return s.skipped
}

// FirstTextLatency returns the latency from stream start to the first
// cut text chunk, or 0 if none was observed.
func (s *VoiceStream) FirstTextLatency() time.Duration {
	s.statMu.Lock()
	defer s.statMu.Unlock()
	if s.firstText.IsZero() {
		return 0
	}
	return s.firstText.Sub(s.startedAt)
}

// FirstAudioLatency returns the latency from stream start to the first
// delivered audio chunk, or 0 if none was delivered.
func (s *VoiceStream) FirstAudioLatency() time.Duration {
	s.statMu.Lock()
	defer s.statMu.Unlock()
	if s.firstAudio.IsZero() {
		return 0
	}
	return s.firstAudio.Sub(s.startedAt)
}

// StreamVoice starts one spoken turn. The returned stream must be
// consumed (or closed); backpressure from a slow consumer limits how
// far the pipeline races ahead.
func (p *Pipeline) StreamVoice(ctx context.Context, prompt string, history []types.Message) (*VoiceStream, error) {
	chunker, err := NewChunker(p.params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	deltas, err := p.source.GenerateStream(ctx, prompt, history)
	if err != nil {
		cancel()
		return nil, p.asProviderError(err)
	}

	stream := &VoiceStream{
		ch:        make(chan types.AudioChunk),
		cancel:    cancel,
		startedAt: time.Now(),
	}

	logger := p.logger.With().Str("turn_id", uuid.NewString()).Logger()

	go p.pump(ctx, deltas, chunker, stream, logger)

	return stream, nil
}

// pump reads deltas, cuts chunks, launches synthesis per chunk, and
// drains the pending FIFO in index order.
func (p *Pipeline) pump(ctx context.Context, deltas text.DeltaStream, chunker *Chunker, stream *VoiceStream, logger zerolog.Logger) {
	defer close(stream.ch)
	defer deltas.Close()

	var pending []*pendingSynthesis

	for {
		delta, err := deltas.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				stream.setErr(ctx.Err())
				return
			}
			logger.Error().Err(err).Msg("text generation failed")
			stream.setErr(p.asProviderError(err))
			return
		}

		for _, chunk := range chunker.Add(delta) {
			stream.markFirstText()
			observability.RecordTextChunk()
			pending = append(pending, p.launch(ctx, chunk, logger))
			// Drain entries older than the lookahead window. The head is
			// awaited even if a newer entry finished first; that is what
			// keeps delivery in index order.
			if !p.drain(ctx, &pending, chunk.Index-p.opts.Lookahead, stream, logger) {
				return
			}
		}
	}

	if final, ok := chunker.Flush(); ok {
		stream.markFirstText()
		observability.RecordTextChunk()
		pending = append(pending, p.launch(ctx, final, logger))
	}

	// Stream ended: drain everything still pending, oldest first.
	p.drain(ctx, &pending, int(^uint(0)>>1), stream, logger)
}

// launch starts synthesis for one chunk without blocking.
func (p *Pipeline) launch(ctx context.Context, chunk types.TextChunk, logger zerolog.Logger) *pendingSynthesis {
	ps := &pendingSynthesis{chunk: chunk, done: make(chan struct{})}
	observability.RecordSynthesisStart()
	started := time.Now()

	logger.Debug().Int("chunk", chunk.Index).Int("chars", len(chunk.Text)).Msg("synthesis launched")

	go func() {
		defer close(ps.done)
		audio, err := p.synth.Synthesize(ctx, chunk.Text, p.opts.Voice)
		observability.RecordSynthesisEnd(err == nil, time.Since(started))
		if err != nil {
			ps.err = core.NewSynthesisError(p.synth.Name(), chunk.Index, err)
			return
		}
		ps.audio = audio
	}()

	return ps
}

// drain awaits and emits every pending entry whose index is at or below
// threshold. Failed entries are logged and skipped. Returns false when
// the context was cancelled.
func (p *Pipeline) drain(ctx context.Context, pending *[]*pendingSynthesis, threshold int, stream *VoiceStream, logger zerolog.Logger) bool {
	for len(*pending) > 0 {
		head := (*pending)[0]
		if head.chunk.Index > threshold {
			return true
		}

		select {
		case <-head.done:
		case <-ctx.Done():
			stream.setErr(ctx.Err())
			return false
		}
		*pending = (*pending)[1:]

		if head.err != nil {
			// Recoverable: this chunk's audio is dropped, the stream
			// continues with the next index.
			logger.Warn().Err(head.err).Int("chunk", head.chunk.Index).Msg("synthesis failed, skipping chunk")
			stream.noteSkipped()
			continue
		}

		out := types.AudioChunk{
			Index:      head.chunk.Index,
			Audio:      head.audio.Audio,
			SourceText: head.chunk.Text,
			Format:     head.audio.Format,
			ProducedAt: time.Now(),
		}
		select {
		case stream.ch <- out:
			observability.RecordAudioChunk(len(out.Audio))
		case <-ctx.Done():
			stream.setErr(ctx.Err())
			return false
		}
	}
	return true
}

func (p *Pipeline) asProviderError(err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.NewProviderError(p.source.Name(), err)
}
