package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a translation response body does not
// carry a string translatedText field.
var ErrMalformedResponse = errors.New("malformed translation response")

// Utterance is one finalized transcript and the request that carries it.
type Utterance struct {
	RequestID string
	Text      string
}

// Outcome is the result of one translation request: exactly one of Success
// or Failure is meaningful.
type Outcome struct {
	OK      bool
	Body    string
	Message string
}

func Success(body string) Outcome {
	return Outcome{OK: true, Body: body}
}

func Failure(message string) Outcome {
	return Outcome{Message: message}
}

// ParseTranslation extracts translatedText from a response body.
func ParseTranslation(body []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw, ok := fields["translatedText"]
	if !ok {
		return "", fmt.Errorf("%w: missing translatedText", ErrMalformedResponse)
	}

	var text *string
	if err := json.Unmarshal(raw, &text); err != nil || text == nil {
		return "", fmt.Errorf("%w: translatedText is not a string", ErrMalformedResponse)
	}

	return *text, nil
}
