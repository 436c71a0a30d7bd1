package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"

// ElevenLabsSynthesizer implements Synthesizer using ElevenLabs' API.
type ElevenLabsSynthesizer struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabs creates a new ElevenLabs synthesizer.
func NewElevenLabs(apiKey string) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsDefaultBaseURL,
		modelID:    "eleven_flash_v2_5",
		httpClient: &http.Client{},
	}
}

// WithBaseURL overrides the API base URL (for tests).
func (e *ElevenLabsSynthesizer) WithBaseURL(base string) *ElevenLabsSynthesizer {
	base = strings.TrimSpace(base)
	if base != "" {
		e.baseURL = strings.TrimRight(base, "/")
	}
	return e
}

// WithModelID overrides the synthesis model.
func (e *ElevenLabsSynthesizer) WithModelID(modelID string) *ElevenLabsSynthesizer {
	if modelID != "" {
		e.modelID = modelID
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsSynthesizer) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Speed       float64 `json:"speed,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Synthesize converts text to audio using the ElevenLabs REST endpoint.
func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string, opts types.VoiceOptions) (*Synthesis, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := strings.TrimSpace(opts.Voice)
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
	}
	if opts.SpeakingRate != 0 || opts.Temperature != 0 {
		reqBody.VoiceSettings = &elevenLabsVoiceSettings{
			Speed:       opts.SpeakingRate,
			Temperature: opts.Temperature,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) +
		"?output_format=" + elevenLabsOutputFormat(opts)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, core.NewRateLimitError(e.Name(), "too many requests")
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return &Synthesis{
		Audio:  audio,
		Format: getFormat(opts.Format),
	}, nil
}

func elevenLabsOutputFormat(opts types.VoiceOptions) string {
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}
	switch opts.Format {
	case "mp3":
		return fmt.Sprintf("mp3_%d_128", sampleRate)
	default:
		return fmt.Sprintf("pcm_%d", sampleRate)
	}
}
