package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing and for running without an API key.
type Mock struct {
	// SynthesizeFunc overrides the default silent audio.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	mu    sync.Mutex
	texts []string
}

// NewMock creates a mock that returns silence sized to the text.
func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
			return nil, err
		},
	}
}

// Synthesize records text and returns SynthesizeFunc's result.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ~20ms of 24kHz PCM16 per character.
	return &AudioResult{
		Audio: make([]byte, len(text)*960),
		Format: AudioFormat{
			Encoding:   EncodingPCM24,
			SampleRate: 24000,
			Channels:   1,
		},
		CharCount: len(text),
	}, nil
}

// Close implements Provider.
func (m *Mock) Close() error { return nil }

// Texts returns every synthesized text in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

var _ Provider = (*Mock)(nil)
