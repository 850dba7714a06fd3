// Package tts synthesizes the assistant's spoken responses on the server.
//
// Devices that cannot synthesize speech themselves receive the audio
// produced here inside the speak message. Devices with a local voice get
// text only and no Provider is configured.
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceShimmer),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "I'm listening.")
package tts

import "context"

// Provider converts text to audio.
type Provider interface {
	// Synthesize returns the complete audio for text.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	CharCount int
	// LatencyMs is the time until the response arrived.
	LatencyMs int64
}

// AudioFormat describes the audio encoding.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding names an audio encoding as sent to devices.
type Encoding string

const (
	EncodingPCM24 Encoding = "pcm16" // 24kHz mono PCM16
	EncodingMP3   Encoding = "mp3"
)

// SampleRateFromEncoding returns the sample rate produced for enc.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}
