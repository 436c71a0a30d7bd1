package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaWSURL   = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion = "2025-04-16"
)

// Default voice ID - users should provide their own voice IDs
const cartesiaDefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"

// CartesiaSynthesizer implements Synthesizer using Cartesia's API.
type CartesiaSynthesizer struct {
	apiKey     string
	baseURL    string
	wsURL      string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia synthesizer.
func NewCartesia(apiKey string) *CartesiaSynthesizer {
	return &CartesiaSynthesizer{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		wsURL:      cartesiaWSURL,
		httpClient: &http.Client{},
	}
}

// NewCartesiaWithClient creates a new Cartesia synthesizer with a custom HTTP client.
func NewCartesiaWithClient(apiKey string, client *http.Client) *CartesiaSynthesizer {
	if client == nil {
		client = &http.Client{}
	}
	return &CartesiaSynthesizer{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		wsURL:      cartesiaWSURL,
		httpClient: client,
	}
}

// WithBaseURL overrides the HTTP and WebSocket endpoints (for tests).
func (c *CartesiaSynthesizer) WithBaseURL(httpBase, wsBase string) *CartesiaSynthesizer {
	if httpBase != "" {
		c.baseURL = httpBase
	}
	if wsBase != "" {
		c.wsURL = wsBase
	}
	return c
}

// Name returns the provider identifier.
func (c *CartesiaSynthesizer) Name() string {
	return "cartesia"
}

type cartesiaTTSRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoiceSpec         `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
	ContextID        string                    `json:"context_id,omitempty"`
}

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Speed       float64 `json:"speed,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Pitch       float64 `json:"pitch,omitempty"`
}

// Synthesize converts text to audio using Cartesia's /tts/bytes endpoint.
func (c *CartesiaSynthesizer) Synthesize(ctx context.Context, text string, opts types.VoiceOptions) (*Synthesis, error) {
	body, err := json.Marshal(c.buildRequest(text, opts, ""))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, core.NewRateLimitError(c.Name(), "too many requests")
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(errBody))
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

// SynthesizeStream converts text to streaming audio using Cartesia's
// WebSocket API. The full transcript is sent up front; audio chunks
// arrive as they are generated.
func (c *CartesiaSynthesizer) SynthesizeStream(ctx context.Context, text string, opts types.VoiceOptions) (*SynthesisStream, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("cartesia_version", cartesiaVersion)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	stream := NewSynthesisStream()

	if err := conn.WriteJSON(c.buildRequest(text, opts, generateContextID())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send request: %w", err)
	}

	go func() {
		defer stream.FinishSending()
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				stream.SetError(ctx.Err())
				return
			case <-stream.done:
				return
			default:
			}

			var msg cartesiaWSResponse
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return
				}
				stream.SetError(err)
				return
			}

			switch msg.Type {
			case "chunk":
				audioData, err := base64.StdEncoding.DecodeString(msg.Data)
				if err != nil {
					stream.SetError(fmt.Errorf("decode audio: %w", err))
					return
				}
				if !stream.Send(audioData) {
					return
				}

			case "done":
				return

			case "error":
				stream.SetError(fmt.Errorf("cartesia error: %s", msg.Error))
				return
			}
		}
	}()

	return stream, nil
}

type cartesiaWSResponse struct {
	Type       string `json:"type"` // "chunk", "done", "error"
	Data       string `json:"data,omitempty"`
	Done       bool   `json:"done,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (c *CartesiaSynthesizer) buildRequest(text string, opts types.VoiceOptions, contextID string) cartesiaTTSRequest {
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = cartesiaDefaultVoiceID
	}

	req := cartesiaTTSRequest{
		ModelID:    "sonic-3",
		Transcript: text,
		Voice: cartesiaVoiceSpec{
			Mode: "id",
			ID:   voiceID,
		},
		OutputFormat: buildCartesiaOutputFormat(opts),
		ContextID:    contextID,
	}

	if opts.SpeakingRate != 0 || opts.Temperature != 0 || opts.Pitch != 0 {
		req.GenerationConfig = &cartesiaGenerationConfig{
			Speed:       opts.SpeakingRate,
			Temperature: opts.Temperature,
			Pitch:       opts.Pitch,
		}
	}

	return req
}

func buildCartesiaOutputFormat(opts types.VoiceOptions) cartesiaOutputFormat {
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}

	switch opts.Format {
	case "mp3":
		return cartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: sampleRate,
			BitRate:    128000,
		}
	case "pcm", "raw":
		return cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: sampleRate,
		}
	default: // wav
		return cartesiaOutputFormat{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: sampleRate,
		}
	}
}

func getFormat(format string) string {
	switch format {
	case "mp3", "pcm", "raw", "wav":
		return format
	default:
		return "wav"
	}
}

var contextCounter atomic.Uint64

func generateContextID() string {
	return fmt.Sprintf("ctx_%d", contextCounter.Add(1))
}
