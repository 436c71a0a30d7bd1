// Package voice implements the streaming voice-response pipeline:
// text-delta chunking, concurrent synthesis with in-order delivery,
// and latency probing.
package voice

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// Strategy names a fixed chunking parameter set trading latency for
// speech naturalness.
type Strategy string

const (
	// StrategyAggressive cuts the smallest chunks for the lowest
	// time-to-first-audio.
	StrategyAggressive Strategy = "aggressive"

	// StrategyBalanced is the default tradeoff.
	StrategyBalanced Strategy = "balanced"

	// StrategyQuality cuts fewer, larger chunks for the most natural
	// prosody.
	StrategyQuality Strategy = "quality"
)

// ChunkingParams controls chunk size bounds and boundary preference.
// Sizes are in runes. MinSize <= IdealSize <= MaxSize must hold.
type ChunkingParams struct {
	MinSize   int
	IdealSize int
	MaxSize   int

	// SentenceBreaks and ClauseBreaks are boundary runes; a boundary
	// matches when the rune is followed by whitespace.
	SentenceBreaks []rune
	ClauseBreaks   []rune
}

var defaultSentenceBreaks = []rune{'.', '!', '?'}
var defaultClauseBreaks = []rune{',', ';', ':'}

// ParamsForStrategy returns the fixed parameter set for a named strategy.
func ParamsForStrategy(strategy Strategy) (ChunkingParams, error) {
	switch strategy {
	case StrategyAggressive:
		return ChunkingParams{
			MinSize:        15,
			IdealSize:      30,
			MaxSize:        50,
			SentenceBreaks: defaultSentenceBreaks,
			ClauseBreaks:   defaultClauseBreaks,
		}, nil
	case StrategyBalanced, "":
		return ChunkingParams{
			MinSize:        25,
			IdealSize:      45,
			MaxSize:        70,
			SentenceBreaks: defaultSentenceBreaks,
			ClauseBreaks:   defaultClauseBreaks,
		}, nil
	case StrategyQuality:
		return ChunkingParams{
			MinSize:        50,
			IdealSize:      90,
			MaxSize:        140,
			SentenceBreaks: defaultSentenceBreaks,
			ClauseBreaks:   defaultClauseBreaks,
		}, nil
	default:
		return ChunkingParams{}, core.NewConfigurationError("unknown chunking strategy: " + string(strategy))
	}
}

// Chunker turns an append-only text stream into index-ordered TTS
// chunks. It performs no I/O; a chunk is emitted the instant a cut
// decision can be made.
type Chunker struct {
	params ChunkingParams

	buf  strings.Builder
	next int
}

// NewChunker creates a chunker with the given parameters.
func NewChunker(params ChunkingParams) (*Chunker, error) {
	if params.MinSize <= 0 || params.IdealSize <= 0 || params.MaxSize <= 0 {
		return nil, core.NewConfigurationError("chunk sizes must be positive")
	}
	if params.MinSize > params.IdealSize || params.IdealSize > params.MaxSize {
		return nil, core.NewConfigurationError("chunk sizes must satisfy min <= ideal <= max")
	}
	if len(params.SentenceBreaks) == 0 {
		params.SentenceBreaks = defaultSentenceBreaks
	}
	if len(params.ClauseBreaks) == 0 {
		params.ClauseBreaks = defaultClauseBreaks
	}
	return &Chunker{params: params}, nil
}

// NewChunkerForStrategy creates a chunker for a named strategy.
func NewChunkerForStrategy(strategy Strategy) (*Chunker, error) {
	params, err := ParamsForStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return NewChunker(params)
}

// Add appends a text fragment and returns any chunks that became
// ready. Empty fragments are ignored.
func (c *Chunker) Add(fragment string) []types.TextChunk {
	if fragment == "" {
		return nil
	}
	c.buf.WriteString(fragment)

	var out []types.TextChunk
	for {
		buf := c.buf.String()
		n := utf8.RuneCountInString(buf)

		if n >= c.params.IdealSize {
			// Prefer the earliest sentence boundary within the window.
			if cut := c.firstSentenceCut(buf); cut > 0 {
				out = c.emit(out, cut, false)
				continue
			}
			// Below MaxSize a sentence may still complete; wait.
			if n < c.params.MaxSize {
				break
			}
			// Forced cut: latest clause boundary, then latest word
			// boundary, then a hard cut at exactly MaxSize.
			if cut := c.lastClauseCut(buf); cut > 0 {
				out = c.emit(out, cut, false)
				continue
			}
			if cut := lastSpaceCut(buf, c.params.MaxSize); cut > 0 {
				out = c.emit(out, cut, false)
				continue
			}
			out = c.emit(out, cutAtRuneCount(buf, c.params.MaxSize), false)
			continue
		}

		// Early cut: a finished sentence between MinSize and IdealSize
		// beats waiting for a fuller chunk.
		if n >= c.params.MinSize {
			if cut := c.firstSentenceCut(buf); cut > 0 {
				out = c.emit(out, cut, false)
				continue
			}
		}
		break
	}
	return out
}

// Flush returns the remaining buffer as the final chunk of the turn,
// regardless of size. ok is false when nothing is buffered.
func (c *Chunker) Flush() (chunk types.TextChunk, ok bool) {
	text := strings.TrimSpace(c.buf.String())
	c.buf.Reset()
	if text == "" {
		return types.TextChunk{}, false
	}
	chunk = types.TextChunk{Index: c.next, Text: text, IsFinal: true}
	c.next++
	return chunk, true
}

// Run drives the chunker from a fragment channel until it closes,
// then flushes. The output channel is closed on return.
func (c *Chunker) Run(ctx context.Context, in <-chan string, out chan<- types.TextChunk) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case frag, open := <-in:
			if !open {
				if final, ok := c.Flush(); ok {
					select {
					case out <- final:
					case <-ctx.Done():
					}
				}
				return
			}
			for _, chunk := range c.Add(frag) {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (c *Chunker) emit(out []types.TextChunk, cut int, final bool) []types.TextChunk {
	buf := c.buf.String()
	if cut <= 0 || cut > len(buf) {
		return out
	}
	text := strings.TrimSpace(buf[:cut])
	rest := strings.TrimLeft(buf[cut:], " \t")
	c.buf.Reset()
	c.buf.WriteString(rest)
	if text == "" {
		return out
	}
	chunk := types.TextChunk{Index: c.next, Text: text, IsFinal: final}
	c.next++
	return append(out, chunk)
}

// firstSentenceCut returns the byte index just past the earliest
// sentence boundary within the first MaxSize runes, or 0.
func (c *Chunker) firstSentenceCut(s string) int {
	return firstBoundaryCut(s, c.params.SentenceBreaks, c.params.MaxSize)
}

// lastClauseCut returns the byte index just past the latest clause
// boundary within the first MaxSize runes, or 0.
func (c *Chunker) lastClauseCut(s string) int {
	last := 0
	runes := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		runes++
		if runes > c.params.MaxSize {
			break
		}
		if runeInSet(r, c.params.ClauseBreaks) && followedBySpace(s, i+size) {
			last = i + size
		}
		i += size
	}
	return last
}

func firstBoundaryCut(s string, set []rune, maxRunes int) int {
	runes := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			return 0
		}
		runes++
		if runes > maxRunes {
			return 0
		}
		if runeInSet(r, set) && followedBySpace(s, i+size) {
			return i + size
		}
		i += size
	}
	return 0
}

// lastSpaceCut returns the byte index just past the latest whitespace
// within the first maxRunes runes, or 0.
func lastSpaceCut(s string, maxRunes int) int {
	last := 0
	runes := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		runes++
		if runes > maxRunes {
			break
		}
		if unicode.IsSpace(r) {
			last = i + size
		}
		i += size
	}
	return last
}

func cutAtRuneCount(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	i := 0
	for r := 0; r < runes && i < len(s); r++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			return i
		}
		i += size
	}
	return i
}

func runeInSet(r rune, set []rune) bool {
	for _, s := range set {
		if r == s {
			return true
		}
	}
	return false
}

func followedBySpace(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}
