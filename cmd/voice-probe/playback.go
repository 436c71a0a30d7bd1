package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/internal/config"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/voice"
)

// speaker plays raw 16-bit little-endian PCM through the default audio
// device.
type speaker struct {
	ctx    *oto.Context
	player *oto.Player
	pipeR  *io.PipeReader
	pipeW  *io.PipeWriter
}

func newSpeaker(sampleRate int) (*speaker, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Millisecond * 100,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := otoCtx.NewPlayer(pr)
	player.Play()

	return &speaker{ctx: otoCtx, player: player, pipeR: pr, pipeW: pw}, nil
}

func (s *speaker) Write(pcm []byte) (int, error) {
	return s.pipeW.Write(pcm)
}

// Close drains buffered audio before releasing the device.
func (s *speaker) Close() error {
	s.pipeW.Close()
	for s.player.IsPlaying() && s.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	return s.player.Close()
}

// probeWithPlayback runs one probed turn and plays the audio as it
// arrives. Only raw PCM output is playable; other formats fail fast.
func probeWithPlayback(ctx context.Context, p *voice.Pipeline, prompt string, cfg *config.Config) (*voice.ProbeResult, error) {
	if cfg.AudioFormat != "pcm" {
		return nil, fmt.Errorf("playback requires AUDIO_FORMAT=pcm, got %q", cfg.AudioFormat)
	}

	spk, err := newSpeaker(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	defer spk.Close()

	start := time.Now()
	stream, err := p.StreamVoice(ctx, prompt, nil)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	result := &voice.ProbeResult{}
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
		if _, err := spk.Write(chunk.Audio); err != nil {
			return nil, fmt.Errorf("playback write failed: %w", err)
		}
	}

	result.Total = time.Since(start)
	result.TimeToFirstText = stream.FirstTextLatency()
	result.TimeToFirstAudio = stream.FirstAudioLatency()
	result.SkippedChunks = stream.SkippedChunks()
	return result, nil
}
