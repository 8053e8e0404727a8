package usecase

import (
	"context"
	"errors"
	"strings"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/ai"
)

const classifierPrompt = `Sei un assistente che smista comandi vocali.
Leggi il messaggio dell'utente e rispondi con UNA sola parola:
- "calendar" se l'utente vuole creare un evento o un appuntamento in calendario
- "todoist" se l'utente vuole creare un'attività o un promemoria
- "unknown" in tutti gli altri casi
Non aggiungere spiegazioni, punteggiatura o altro testo.`

// IntentClassifier labels a transcript with one intent of the closed vocabulary
type IntentClassifier struct {
	llm   ai.CompletionService
	model string
}

func NewIntentClassifier(llm ai.CompletionService, model string) *IntentClassifier {
	return &IntentClassifier{llm: llm, model: model}
}

// Classify asks the model for a one-word label. A failed call is a classification
// error; a well-formed answer outside the vocabulary is IntentUnknown.
func (c *IntentClassifier) Classify(ctx context.Context, transcript domain.Transcript) (domain.Intent, error) {
	text := strings.TrimSpace(transcript.Text)
	if text == "" {
		return "", domain.NewClassificationError(domain.ErrEmptyTranscript)
	}

	answer, err := c.llm.Complete(ctx, ai.CompletionRequest{
		Model: c.model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: classifierPrompt},
			{Role: ai.RoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", domain.NewClassificationError(err)
	}

	label := strings.ToLower(strings.TrimSpace(answer))
	if label == "" {
		return "", domain.NewClassificationError(errors.New("empty model answer"))
	}
	return IntentFromLabel(label), nil
}

// IntentFromLabel maps an already normalized model label to an intent
func IntentFromLabel(label string) domain.Intent {
	switch label {
	case "calendar":
		return domain.IntentCreateEvent
	case "todoist":
		return domain.IntentCreateTask
	default:
		return domain.IntentUnknown
	}
}
