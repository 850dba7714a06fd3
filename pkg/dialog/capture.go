package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCaptureExhausted is returned when a bounded capture runs out of attempts.
var ErrCaptureExhausted = errors.New("dialog: capture attempts exhausted")

// Prompts used by the capture loop.
const (
	PromptRepeat  = "Please, repeat what you said."
	confirmFormat = "You said: %s. Is it correct?"
	confirmAnswer = "yes"
)

// Capture asks a question and loops until the answer is confirmed with "yes".
// Each empty answer or rejected confirmation consumes one attempt.
type Capture struct {
	Question string
	Retry    string // spoken after a rejected confirmation
	Grammar  string // constrains the answer, not the confirmation
	// MaxAttempts bounds the loop; 0 retries until confirmed.
	MaxAttempts int
}

// Run performs the capture. opts supplies the silence timeouts; the
// confirmation is always recognized without a grammar.
func (c Capture) Run(ctx context.Context, v Voice, rec Recognizer, opts RecognizeOptions) (string, error) {
	answerOpts := opts
	answerOpts.Grammar = c.Grammar
	confirmOpts := opts
	confirmOpts.Grammar = ""

	if err := v.SpeakAndShow(ctx, c.Question); err != nil {
		return "", fmt.Errorf("dialog: capture prompt: %w", err)
	}

	attempts := 0
	for {
		text, err := recognize(ctx, rec, answerOpts)
		if err != nil {
			return "", err
		}

		var prompt string
		if text == "" {
			attempts++
			prompt = PromptRepeat
		} else {
			if err := v.SpeakAndShow(ctx, fmt.Sprintf(confirmFormat, text)); err != nil {
				return "", fmt.Errorf("dialog: capture confirm: %w", err)
			}
			ack, err := recognize(ctx, rec, confirmOpts)
			if err != nil {
				return "", err
			}
			if Normalize(ack) == confirmAnswer {
				return text, nil
			}
			attempts++
			prompt = c.Retry
		}

		if c.MaxAttempts > 0 && attempts >= c.MaxAttempts {
			return "", ErrCaptureExhausted
		}
		if err := v.SpeakAndShow(ctx, prompt); err != nil {
			return "", fmt.Errorf("dialog: capture retry: %w", err)
		}
	}
}

func recognize(ctx context.Context, rec Recognizer, opts RecognizeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := rec.RecognizeOnce(ctx, opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("dialog: capture recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
