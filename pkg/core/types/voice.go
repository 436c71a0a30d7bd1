package types

// VoiceOptions selects the synthesis voice and delivery parameters.
// Zero values mean "provider default".
type VoiceOptions struct {
	Voice        string  `json:"voice"`                   // Provider voice identifier
	Temperature  float64 `json:"temperature,omitempty"`   // Sampling temperature, where supported
	SpeakingRate float64 `json:"speaking_rate,omitempty"` // Speed multiplier
	Pitch        float64 `json:"pitch,omitempty"`         // Pitch shift, where supported
	Format       string  `json:"format,omitempty"`        // "wav", "mp3", or "pcm"
	SampleRate   int     `json:"sample_rate,omitempty"`   // e.g. 16000, 24000, 44100
}
