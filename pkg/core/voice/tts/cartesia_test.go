package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core"
	"github.com/gabe-almeida/ai-voice-agent-lm-sub000/pkg/core/types"
)

func TestCartesiaSynthesize(t *testing.T) {
	var gotReq cartesiaTTSRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/bytes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if v := r.Header.Get("Cartesia-Version"); v == "" {
			t.Error("missing Cartesia-Version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("fake-audio-bytes"))
	}))
	defer server.Close()

	synth := NewCartesia("test-key").WithBaseURL(server.URL, "")
	result, err := synth.Synthesize(context.Background(), "Hello world.", types.VoiceOptions{
		Voice:      "voice-123",
		Format:     "pcm",
		SampleRate: 24000,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if string(result.Audio) != "fake-audio-bytes" {
		t.Errorf("unexpected audio %q", result.Audio)
	}
	if result.Format != "pcm" {
		t.Errorf("expected format pcm, got %q", result.Format)
	}
	if gotReq.Transcript != "Hello world." {
		t.Errorf("unexpected transcript %q", gotReq.Transcript)
	}
	if gotReq.Voice.ID != "voice-123" || gotReq.Voice.Mode != "id" {
		t.Errorf("unexpected voice spec %+v", gotReq.Voice)
	}
	if gotReq.OutputFormat.Container != "raw" || gotReq.OutputFormat.Encoding != "pcm_s16le" {
		t.Errorf("unexpected output format %+v", gotReq.OutputFormat)
	}
}

func TestCartesiaSynthesizeDefaultVoice(t *testing.T) {
	var gotReq cartesiaTTSRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	synth := NewCartesia("k").WithBaseURL(server.URL, "")
	if _, err := synth.Synthesize(context.Background(), "hi", types.VoiceOptions{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotReq.Voice.ID == "" {
		t.Error("expected a default voice id")
	}
	if gotReq.ModelID != "sonic-3" {
		t.Errorf("unexpected model %q", gotReq.ModelID)
	}
}

func TestCartesiaSynthesizeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	synth := NewCartesia("k").WithBaseURL(server.URL, "")
	_, err := synth.Synthesize(context.Background(), "hi", types.VoiceOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *core.Error
	if !errors.As(err, &ce) || ce.Type != core.ErrRateLimit {
		t.Errorf("expected rate limit error, got %v", err)
	}
	if core.IsFatal(err) {
		t.Error("rate limit errors are retryable, not fatal")
	}
}

func TestCartesiaSynthesizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	synth := NewCartesia("k").WithBaseURL(server.URL, "")
	_, err := synth.Synthesize(context.Background(), "hi", types.VoiceOptions{})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}

var wsUpgrader = websocket.Upgrader{}

func TestCartesiaSynthesizeStream(t *testing.T) {
	payload := [][]byte{[]byte("part-one"), []byte("part-two")}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("missing api_key query param")
		}
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req cartesiaTTSRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if req.ContextID == "" {
			t.Error("expected a context id on streaming requests")
		}

		for _, p := range payload {
			conn.WriteJSON(cartesiaWSResponse{
				Type: "chunk",
				Data: base64.StdEncoding.EncodeToString(p),
			})
		}
		conn.WriteJSON(cartesiaWSResponse{Type: "done", Done: true})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	synth := NewCartesia("test-key").WithBaseURL("", wsURL)

	stream, err := synth.SynthesizeStream(context.Background(), "Hello world.", types.VoiceOptions{})
	if err != nil {
		t.Fatalf("SynthesizeStream: %v", err)
	}

	var got [][]byte
	for chunk := range stream.Chunks() {
		got = append(got, chunk)
	}
	stream.Close()
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if len(got) != len(payload) {
		t.Fatalf("expected %d chunks, got %d", len(payload), len(got))
	}
	for i := range payload {
		if string(got[i]) != string(payload[i]) {
			t.Errorf("chunk %d: expected %q, got %q", i, payload[i], got[i])
		}
	}
}

func TestCartesiaSynthesizeStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req cartesiaTTSRequest
		conn.ReadJSON(&req)
		conn.WriteJSON(cartesiaWSResponse{Type: "error", Error: "voice not found"})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	synth := NewCartesia("k").WithBaseURL("", wsURL)

	stream, err := synth.SynthesizeStream(context.Background(), "hi", types.VoiceOptions{})
	if err != nil {
		t.Fatalf("SynthesizeStream: %v", err)
	}

	for range stream.Chunks() {
	}
	stream.Close()
	if err := stream.Err(); err == nil || !strings.Contains(err.Error(), "voice not found") {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestBuildCartesiaOutputFormat(t *testing.T) {
	mp3 := buildCartesiaOutputFormat(types.VoiceOptions{Format: "mp3", SampleRate: 44100})
	if mp3.Container != "mp3" || mp3.BitRate == 0 {
		t.Errorf("unexpected mp3 format %+v", mp3)
	}

	wav := buildCartesiaOutputFormat(types.VoiceOptions{})
	if wav.Container != "wav" || wav.SampleRate != 24000 {
		t.Errorf("unexpected default format %+v", wav)
	}
}
