package application

import "context"

// TranslationCallback receives the outcome of one request. Exactly one of
// the methods is called, from a goroutine owned by the translator.
type TranslationCallback interface {
	OnSuccess(body string)
	OnFailure(message string)
}

type Translator interface {
	Enqueue(ctx context.Context, text string, cb TranslationCallback)
}
