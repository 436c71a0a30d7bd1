package text

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
)

// OpenAISource implements Source against an OpenAI-compatible
// chat/completions SSE endpoint.
type OpenAISource struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAISource.
type OpenAIOption func(*OpenAISource)

// WithBaseURL overrides the API base URL (for compatible providers and tests).
func WithBaseURL(baseURL string) OpenAIOption {
	return func(s *OpenAISource) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) OpenAIOption {
	return func(s *OpenAISource) {
		s.model = model
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(s *OpenAISource) {
		s.httpClient = client
	}
}

// NewOpenAI creates an OpenAI-compatible text source.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAISource {
	s := &OpenAISource{
		apiKey:     apiKey,
		baseURL:    openAIDefaultBaseURL,
		model:      openAIDefaultModel,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *OpenAISource) Name() string {
	return "openai"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is the OpenAI streaming chunk format.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// GenerateStream sends a streaming chat request and returns an iterator
// over content deltas.
func (s *OpenAISource) GenerateStream(ctx context.Context, prompt string, history []types.Message) (DeltaStream, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: string(types.RoleUser), Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, core.NewProviderError(s.Name(), fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewProviderError(s.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, core.NewProviderError(s.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, core.NewProviderError(s.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, string(errBody)))
	}

	return &sseDeltaStream{
		provider: s.Name(),
		reader:   bufio.NewReader(resp.Body),
		closer:   resp.Body,
	}, nil
}

// sseDeltaStream implements DeltaStream over an SSE response body.
type sseDeltaStream struct {
	provider string
	reader   *bufio.Reader
	closer   io.Closer
	err      error
	finished bool
}

// Next returns the next content delta. Returns "", io.EOF when done.
func (s *sseDeltaStream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.finished {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.finished = true
				return "", io.EOF
			}
			s.err = core.NewProviderError(s.provider, err)
			return "", s.err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.finished = true
			return "", io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.err = core.NewProviderError(s.provider, fmt.Errorf("decode chunk: %w", err))
			return "", s.err
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
		if chunk.Choices[0].FinishReason != "" {
			s.finished = true
			return "", io.EOF
		}
	}
}

// Close releases the underlying response body.
func (s *sseDeltaStream) Close() error {
	return s.closer.Close()
}
