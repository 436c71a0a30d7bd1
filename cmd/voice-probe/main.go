// Command voice-probe drives the streaming voice pipeline against real
// providers and reports time-to-first-text, time-to-first-audio, and
// total turn duration, comparing the configured lookahead window with a
// fully sequential run.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/internal/config"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/internal/observability"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/text"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/voice"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/voice/tts"
)

const defaultPrompt = "Give me a two paragraph summary of how text to speech pipelines keep latency low."

func main() {
	prompt := flag.String("prompt", defaultPrompt, "prompt to probe with")
	compare := flag.Bool("compare", true, "also run with lookahead 0 for comparison")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", true).Fatal().Err(err).Msg("configuration error")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	source := buildSource(cfg)
	synth := buildSynthesizer(cfg, logger)

	opts := voice.PipelineOptions{
		Strategy:  voice.Strategy(cfg.ChunkStrategy),
		Lookahead: cfg.Lookahead,
		Voice: types.VoiceOptions{
			Voice:      cfg.VoiceID,
			Format:     cfg.AudioFormat,
			SampleRate: cfg.SampleRate,
		},
	}

	result := probe(ctx, source, synth, opts, *prompt, cfg, logger)
	logger.Info().
		Int("lookahead", cfg.Lookahead).
		Dur("time_to_first_text", result.TimeToFirstText).
		Dur("time_to_first_audio", result.TimeToFirstAudio).
		Dur("total", result.Total).
		Int("audio_chunks", result.AudioChunks).
		Int("skipped_chunks", result.SkippedChunks).
		Int64("audio_bytes", result.AudioBytes).
		Msg("probe complete")

	if *compare && cfg.Lookahead > 0 {
		seqOpts := opts
		seqOpts.Lookahead = 0
		seq := probe(ctx, source, synth, seqOpts, *prompt, cfg, logger)
		logger.Info().
			Int("lookahead", 0).
			Dur("time_to_first_audio", seq.TimeToFirstAudio).
			Dur("total", seq.Total).
			Dur("total_saved", seq.Total-result.Total).
			Msg("sequential baseline")
	}
}

func probe(ctx context.Context, source text.Source, synth tts.Synthesizer, opts voice.PipelineOptions, prompt string, cfg *config.Config, logger zerolog.Logger) *voice.ProbeResult {
	pipeline, err := voice.NewPipeline(source, synth, opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline construction failed")
	}

	if cfg.PlaybackEnabled {
		result, err := probeWithPlayback(ctx, pipeline, prompt, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("probe failed")
		}
		return result
	}

	result, err := voice.RunProbe(ctx, pipeline, prompt, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("probe failed")
	}
	return result
}

func buildSource(cfg *config.Config) text.Source {
	opts := []text.OpenAIOption{text.WithModel(cfg.OpenAIModel)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, text.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return text.NewOpenAI(cfg.OpenAIAPIKey, opts...)
}

func buildSynthesizer(cfg *config.Config, logger zerolog.Logger) tts.Synthesizer {
	var synth tts.Synthesizer
	switch cfg.TTSProvider {
	case "elevenlabs":
		synth = tts.NewElevenLabs(cfg.ElevenLabsAPIKey)
	default:
		synth = tts.NewCartesia(cfg.CartesiaAPIKey)
	}

	if cfg.TTSRequestsPerSecond > 0 || cfg.TTSMaxInFlight > 0 {
		logger.Info().
			Float64("rps", cfg.TTSRequestsPerSecond).
			Int64("max_in_flight", cfg.TTSMaxInFlight).
			Msg("throttling synthesizer")
		synth = tts.NewThrottled(synth, tts.ThrottleConfig{
			RPS:         cfg.TTSRequestsPerSecond,
			Burst:       cfg.TTSBurst,
			MaxInFlight: cfg.TTSMaxInFlight,
		})
	}
	return synth
}
