package application

import "speak-translate/internal/domain"

// Display mirrors the controller's visible fields.
type Display interface {
	SetState(state domain.State)
	SetSourceText(text string)
	SetTranslatedText(text string)
}

type NoopDisplay struct{}

func (n *NoopDisplay) SetState(_ domain.State) {}

func (n *NoopDisplay) SetSourceText(_ string) {}

func (n *NoopDisplay) SetTranslatedText(_ string) {}
