// Package speech defines the voice capability contracts the assessment core
// consumes. Retry, size-limit and format policies belong to the implementing
// collaborator, not to these interfaces.
package speech

import (
	"context"
	"time"
)

// WordTiming locates one recognized word inside the audio.
type WordTiming struct {
	Word  string        `json:"word"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Transcription is the result of converting audio to text.
type Transcription struct {
	Text        string        `json:"text"`
	Duration    time.Duration `json:"duration,omitempty"`
	Language    string        `json:"language,omitempty"`
	WordTimings []WordTiming  `json:"word_timings,omitempty"`
}

// SynthesizeRequest configures one text-to-speech call.
type SynthesizeRequest struct {
	Text   string
	Voice  string
	Format string
	Speed  float64
}

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error)
}

// TranscribeRequest configures one speech-to-text call. Language is optional;
// empty means auto-detect.
type TranscribeRequest struct {
	Audio       []byte
	ContentType string
	Language    string
}

// Transcriber converts audio bytes to a transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*Transcription, error)
}
