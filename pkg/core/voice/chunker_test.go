package voice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

const sampleText = "Hello there! This is a test of streaming audio. Each sentence should be converted to audio separately."

// feed pushes text through the chunker in small fragments the way a
// streaming model delivers it, then flushes.
func feed(t *testing.T, c *Chunker, text string, fragSize int) []types.TextChunk {
	t.Helper()
	var chunks []types.TextChunk
	runes := []rune(text)
	for i := 0; i < len(runes); i += fragSize {
		end := i + fragSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, c.Add(string(runes[i:end]))...)
	}
	if final, ok := c.Flush(); ok {
		chunks = append(chunks, final)
	}
	return chunks
}

func TestChunkerBalancedSentences(t *testing.T) {
	c, err := NewChunkerForStrategy(StrategyBalanced)
	if err != nil {
		t.Fatalf("NewChunkerForStrategy: %v", err)
	}

	chunks := feed(t, c, sampleText, 7)

	want := []string{
		"Hello there!",
		"This is a test of streaming audio.",
		"Each sentence should be converted to audio separately.",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunkTexts(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunk.Text)
		}
		if n := utf8.RuneCountInString(chunk.Text); n > 70 {
			t.Errorf("chunk %d: %d runes exceeds max size 70", i, n)
		}
	}
}

func TestChunkerAggressiveCutsSmaller(t *testing.T) {
	balanced, _ := NewChunkerForStrategy(StrategyBalanced)
	aggressive, _ := NewChunkerForStrategy(StrategyAggressive)

	nBalanced := len(feed(t, balanced, sampleText, 5))
	nAggressive := len(feed(t, aggressive, sampleText, 5))

	if nAggressive <= nBalanced {
		t.Errorf("expected aggressive to cut more chunks than balanced, got %d vs %d", nAggressive, nBalanced)
	}

	aggressive2, _ := NewChunkerForStrategy(StrategyAggressive)
	for _, chunk := range feed(t, aggressive2, sampleText, 5) {
		if n := utf8.RuneCountInString(chunk.Text); n > 50 {
			t.Errorf("chunk %d: %d runes exceeds aggressive max size 50", chunk.Index, n)
		}
	}
}

func TestChunkerPreservesAllText(t *testing.T) {
	for _, fragSize := range []int{1, 3, 11, 200} {
		c, _ := NewChunkerForStrategy(StrategyBalanced)
		chunks := feed(t, c, sampleText, fragSize)

		joined := strings.Join(chunkTexts(chunks), " ")
		if got, want := strings.Fields(joined), strings.Fields(sampleText); !equalFields(got, want) {
			t.Errorf("fragSize %d: reconstructed text differs: got %q", fragSize, joined)
		}
	}
}

func TestChunkerIndicesMonotonic(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyAggressive)
	chunks := feed(t, c, sampleText, 4)

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
	}
}

func TestChunkerFinalFlag(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyBalanced)
	chunks := feed(t, c, sampleText, 6)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, chunk := range chunks[:len(chunks)-1] {
		if chunk.IsFinal {
			t.Errorf("chunk %d marked final", chunk.Index)
		}
	}
	if !chunks[len(chunks)-1].IsFinal {
		t.Error("last chunk not marked final")
	}
}

func TestChunkerClauseFallback(t *testing.T) {
	// No sentence boundary anywhere; at max size the latest clause
	// boundary wins over a word boundary.
	text := "one two three four, five six seven eight nine ten eleven, twelve and some more words after that boundary"
	params := ChunkingParams{MinSize: 10, IdealSize: 20, MaxSize: 60}
	c, err := NewChunker(params)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := c.Add(text)
	if len(chunks) == 0 {
		t.Fatal("expected a forced cut")
	}
	if !strings.HasSuffix(chunks[0].Text, ",") {
		t.Errorf("expected clause-boundary cut, got %q", chunks[0].Text)
	}
}

func TestChunkerWordFallback(t *testing.T) {
	// No sentence or clause boundaries; the cut lands on the latest
	// word boundary before max size.
	text := strings.Repeat("word ", 30)
	params := ChunkingParams{MinSize: 10, IdealSize: 20, MaxSize: 32}
	c, _ := NewChunker(params)

	chunks := c.Add(text)
	if len(chunks) == 0 {
		t.Fatal("expected cuts")
	}
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, "  ") || strings.HasSuffix(chunk.Text, " ") {
			t.Errorf("chunk %d not trimmed: %q", chunk.Index, chunk.Text)
		}
		if n := utf8.RuneCountInString(chunk.Text); n > 32 {
			t.Errorf("chunk %d: %d runes exceeds max", chunk.Index, n)
		}
	}
}

func TestChunkerHardCutWithoutSpaces(t *testing.T) {
	text := strings.Repeat("x", 100)
	params := ChunkingParams{MinSize: 10, IdealSize: 20, MaxSize: 30}
	c, _ := NewChunker(params)

	chunks := c.Add(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 hard cuts, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk.Text); n != 30 {
			t.Errorf("chunk %d: expected hard cut at 30 runes, got %d", chunk.Index, n)
		}
	}
	final, ok := c.Flush()
	if !ok {
		t.Fatal("expected a final remainder")
	}
	if n := utf8.RuneCountInString(final.Text); n != 10 {
		t.Errorf("expected 10-rune remainder, got %d", n)
	}
}

func TestChunkerHardCutCountsRunes(t *testing.T) {
	// Multi-byte runes: the hard cut must count runes, not bytes.
	text := strings.Repeat("é", 40)
	params := ChunkingParams{MinSize: 5, IdealSize: 10, MaxSize: 15}
	c, _ := NewChunker(params)

	chunks := c.Add(text)
	if len(chunks) == 0 {
		t.Fatal("expected cuts")
	}
	for _, chunk := range chunks {
		if !utf8.ValidString(chunk.Text) {
			t.Errorf("chunk %d split a rune: %q", chunk.Index, chunk.Text)
		}
		if n := utf8.RuneCountInString(chunk.Text); n != 15 {
			t.Errorf("chunk %d: expected 15 runes, got %d", chunk.Index, n)
		}
	}
}

func TestChunkerWaitsBelowMax(t *testing.T) {
	// Between ideal and max with no sentence boundary the chunker holds
	// the buffer, betting the sentence completes.
	params := ChunkingParams{MinSize: 10, IdealSize: 20, MaxSize: 60}
	c, _ := NewChunker(params)

	if chunks := c.Add("this span is past ideal but has no"); len(chunks) != 0 {
		t.Fatalf("expected no cut below max, got %v", chunkTexts(chunks))
	}
	chunks := c.Add(" boundary until here. ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk once the sentence closed, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, "here.") {
		t.Errorf("expected sentence cut, got %q", chunks[0].Text)
	}
}

func TestChunkerEarlySentenceCut(t *testing.T) {
	// A finished sentence past min size is cut without waiting for ideal.
	params := ChunkingParams{MinSize: 10, IdealSize: 40, MaxSize: 80}
	c, _ := NewChunker(params)

	chunks := c.Add("Short sentence. ")
	if len(chunks) != 1 {
		t.Fatalf("expected early cut, got %d chunks", len(chunks))
	}
	if chunks[0].Text != "Short sentence." {
		t.Errorf("expected %q, got %q", "Short sentence.", chunks[0].Text)
	}
}

func TestChunkerIgnoresEmptyFragments(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyBalanced)
	if chunks := c.Add(""); chunks != nil {
		t.Errorf("expected nil for empty fragment, got %v", chunks)
	}
	if _, ok := c.Flush(); ok {
		t.Error("expected nothing to flush")
	}
}

func TestChunkerFlushTrimsWhitespace(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyBalanced)
	c.Add("   \n ")
	if _, ok := c.Flush(); ok {
		t.Error("whitespace-only buffer should not flush a chunk")
	}

	c.Add("  tail words  ")
	final, ok := c.Flush()
	if !ok {
		t.Fatal("expected final chunk")
	}
	if final.Text != "tail words" {
		t.Errorf("expected trimmed text, got %q", final.Text)
	}
}

func TestNewChunkerValidation(t *testing.T) {
	cases := []struct {
		name   string
		params ChunkingParams
	}{
		{"zero sizes", ChunkingParams{}},
		{"negative min", ChunkingParams{MinSize: -1, IdealSize: 10, MaxSize: 20}},
		{"min above ideal", ChunkingParams{MinSize: 30, IdealSize: 10, MaxSize: 50}},
		{"ideal above max", ChunkingParams{MinSize: 5, IdealSize: 60, MaxSize: 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.params)
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *core.Error
			if !errors.As(err, &ce) || ce.Type != core.ErrConfiguration {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestParamsForStrategyUnknown(t *testing.T) {
	_, err := ParamsForStrategy("extreme")
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestParamsForStrategyDefaultsToBalanced(t *testing.T) {
	params, err := ParamsForStrategy("")
	if err != nil {
		t.Fatalf("ParamsForStrategy: %v", err)
	}
	if params.IdealSize != 45 {
		t.Errorf("expected balanced defaults, got %+v", params)
	}
}

func TestChunkerRun(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyBalanced)

	in := make(chan string)
	out := make(chan types.TextChunk)
	go c.Run(context.Background(), in, out)

	go func() {
		for _, frag := range []string{"Hello there! ", "This is a test of streaming audio. ", "Tail"} {
			in <- frag
		}
		close(in)
	}()

	var chunks []types.TextChunk
	for chunk := range out {
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunkTexts(chunks))
	}
	if chunks[2].Text != "Tail" || !chunks[2].IsFinal {
		t.Errorf("expected final flushed chunk, got %+v", chunks[2])
	}
}

func TestChunkerRunCancelled(t *testing.T) {
	c, _ := NewChunkerForStrategy(StrategyBalanced)
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan string)
	out := make(chan types.TextChunk)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, in, out)
		close(done)
	}()

	cancel()
	<-done
	if _, open := <-out; open {
		t.Error("output channel should be closed after cancellation")
	}
}

func chunkTexts(chunks []types.TextChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
