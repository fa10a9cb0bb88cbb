package speech

import (
	"context"
	"strings"
	"time"
)

// MockSynthesizer returns canned audio bytes and records every request.
type MockSynthesizer struct {
	Audio    []byte
	Err      error
	Requests []SynthesizeRequest
}

func (m *MockSynthesizer) Synthesize(_ context.Context, req SynthesizeRequest) ([]byte, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}

// MockTranscriber returns a fixed transcription and records every request.
// When Result is nil it derives a transcription from the audio bytes treated
// as UTF-8 text, which keeps tests readable.
type MockTranscriber struct {
	Result   *Transcription
	Err      error
	Requests []TranscribeRequest
}

func (m *MockTranscriber) Transcribe(_ context.Context, req TranscribeRequest) (*Transcription, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}

	text := string(req.Audio)
	words := strings.Fields(text)
	timings := make([]WordTiming, 0, len(words))
	for i, w := range words {
		start := time.Duration(i) * 500 * time.Millisecond
		timings = append(timings, WordTiming{Word: w, Start: start, End: start + 400*time.Millisecond})
	}
	return &Transcription{
		Text:        text,
		Duration:    time.Duration(len(words)) * 500 * time.Millisecond,
		Language:    req.Language,
		WordTimings: timings,
	}, nil
}
