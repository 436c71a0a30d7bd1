package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	textChunksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_text_chunks_total",
		Help: "Total text chunks cut from streamed responses",
	})

	audioChunksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_audio_chunks_total",
		Help: "Total audio chunks delivered in order",
	})

	audioBytesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_audio_bytes_total",
		Help: "Total synthesized audio bytes delivered",
	})

	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_pipeline_synthesis_requests_total",
		Help: "Total synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_pipeline_synthesis_latency_seconds",
		Help:    "Per-chunk synthesis latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	synthesisInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_pipeline_synthesis_in_flight",
		Help: "Synthesis requests currently in flight",
	})

	timeToFirstAudio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_pipeline_time_to_first_audio_seconds",
		Help:    "Latency from stream start to the first delivered audio chunk",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})
)

// RecordTextChunk counts one cut text chunk.
func RecordTextChunk() {
	textChunksEmitted.Inc()
}

// RecordAudioChunk counts one delivered audio chunk.
func RecordAudioChunk(bytes int) {
	audioChunksEmitted.Inc()
	audioBytesEmitted.Add(float64(bytes))
}

// RecordSynthesisStart marks one synthesis request in flight.
func RecordSynthesisStart() {
	synthesisInFlight.Inc()
}

// RecordSynthesisEnd records one finished synthesis request.
func RecordSynthesisEnd(success bool, latency time.Duration) {
	synthesisInFlight.Dec()
	synthesisLatency.Observe(latency.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
}

// RecordFirstAudio records time-to-first-audio for one turn.
func RecordFirstAudio(latency time.Duration) {
	timeToFirstAudio.Observe(latency.Seconds())
}
