package types

import "time"

// TextChunk is a bounded span of text cut from a streamed response.
// Indices are assigned 0,1,2,... in emission order with no gaps.
type TextChunk struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// AudioChunk is the synthesized audio for one TextChunk. Index matches
// the TextChunk the audio was derived from; the pipeline holds no
// reference to the chunk once it has been emitted.
type AudioChunk struct {
	Index      int       `json:"index"`
	Audio      []byte    `json:"audio"`
	SourceText string    `json:"source_text"`
	Format     string    `json:"format,omitempty"`
	ProducedAt time.Time `json:"produced_at"`
}
