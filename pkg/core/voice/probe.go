package voice

import (
	"context"
	"io"
	"time"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

// ProbeResult holds the latency measurements for one probed turn.
type ProbeResult struct {
	TimeToFirstText  time.Duration `json:"time_to_first_text"`
	TimeToFirstAudio time.Duration `json:"time_to_first_audio"`
	Total            time.Duration `json:"total"`
	AudioChunks      int           `json:"audio_chunks"`
	SkippedChunks    int           `json:"skipped_chunks"`
	AudioBytes       int64         `json:"audio_bytes"`
}

// RunProbe drives the pipeline once for the given prompt and records
// time-to-first-text, time-to-first-audio, and total duration. The
// probe consumes the stream as fast as it arrives and has no effect on
// pipeline behavior.
func RunProbe(ctx context.Context, p *Pipeline, prompt string, history []types.Message) (*ProbeResult, error) {
	start := time.Now()

	stream, err := p.StreamVoice(ctx, prompt, history)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	result := &ProbeResult{}
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		result.AudioChunks++
		result.AudioBytes += int64(len(chunk.Audio))
	}

	result.Total = time.Since(start)
	result.TimeToFirstText = stream.FirstTextLatency()
	result.TimeToFirstAudio = stream.FirstAudioLatency()
	result.SkippedChunks = stream.SkippedChunks()
	return result, nil
}
