package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCapture(t *testing.T, c Capture, answers ...string) (*harness, string, error) {
	t.Helper()
	h := newHarness(t, nil, answers...)
	text, err := c.Run(context.Background(), (*fakeVoice)(h), (*fakeRecognizer)(h), RecognizeOptions{})
	return h, text, err
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func TestCaptureSucceedsAfterRetries(t *testing.T) {
	c := Capture{Question: "What?", Retry: "Again.", MaxAttempts: 3}
	h, text, err := runCapture(t, c, "", "milk", "no", "bread", "yes")

	require.NoError(t, err)
	assert.Equal(t, "bread", text)

	spoken := h.Spoken()
	assert.Equal(t, "What?", spoken[0])
	assert.Equal(t, 1, countOf(spoken, PromptRepeat))
	assert.Equal(t, 1, countOf(spoken, "Again."))
	assert.Contains(t, spoken, "You said: bread. Is it correct?")
}

func TestCaptureExhausted(t *testing.T) {
	c := Capture{Question: "What?", Retry: "Again.", MaxAttempts: 3}
	h, _, err := runCapture(t, c, "", "", "")

	assert.ErrorIs(t, err, ErrCaptureExhausted)
	// No prompt after the final attempt.
	assert.Equal(t, 2, countOf(h.Spoken(), PromptRepeat))
}

func TestCaptureRejectionsCountAsAttempts(t *testing.T) {
	c := Capture{Question: "What?", Retry: "Again.", MaxAttempts: 2}
	_, _, err := runCapture(t, c, "a", "no", "b", "nope")
	assert.ErrorIs(t, err, ErrCaptureExhausted)
}

func TestCaptureUnboundedKeepsAsking(t *testing.T) {
	c := Capture{Question: "Day?", Retry: "Again.", Grammar: GrammarReminderDate}
	h, text, err := runCapture(t, c, "", "", "", "", "", "march 5", "yes")

	require.NoError(t, err)
	assert.Equal(t, "march 5", text)
	assert.Equal(t, 5, countOf(h.Spoken(), PromptRepeat))
}

func TestCaptureGrammarOnlyOnAnswer(t *testing.T) {
	c := Capture{Question: "Day?", Grammar: GrammarReminderDate}
	h, _, err := runCapture(t, c, "march 5", "yes")
	require.NoError(t, err)

	require.Len(t, h.opts, 2)
	assert.Equal(t, GrammarReminderDate, h.opts[0].Grammar)
	assert.Empty(t, h.opts[1].Grammar)
}

func TestCaptureConfirmationIsNormalized(t *testing.T) {
	c := Capture{Question: "What?", MaxAttempts: 1}
	_, text, err := runCapture(t, c, "  buy milk ", " YES ")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", text)
}

func TestCaptureRecognizerError(t *testing.T) {
	h := newHarness(t, nil)
	h.recErr = errors.New("device gone")

	_, err := Capture{Question: "What?"}.Run(context.Background(), (*fakeVoice)(h), (*fakeRecognizer)(h), RecognizeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, h.recErr)
	assert.NotErrorIs(t, err, ErrCaptureExhausted)
}

func TestCaptureCanceled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Capture{Question: "What?"}.Run(ctx, (*fakeVoice)(h), (*fakeRecognizer)(h), RecognizeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.opts)
}
