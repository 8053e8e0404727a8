package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/ai"
)

const eventExtractionPrompt = `Estrai i dati dell'evento dal messaggio dell'utente.
Oggi è %s. Rispondi SOLO con queste righe, una per campo:
Titolo: <titolo breve>
Descrizione: <descrizione, oppure vuoto>
Luogo: <luogo, oppure vuoto>
Partecipanti: <indirizzi e-mail separati da virgola, oppure vuoto>
Data: <GG/MM/AAAA>
Orario: <HH:MM - HH:MM>`

const taskExtractionPrompt = `Estrai i dati dell'attività dal messaggio dell'utente.
Rispondi SOLO con queste righe, una per campo:
Titolo: <titolo breve>
Area: <una tra Operations, Finance, Marketing, Dev, Graphic, Sales>
Contenuto: <tipo di contenuto, per esempio E-mail, Doc, Meeting>
Priorità: <Low, Medium oppure High>
Scadenza: <scadenza in linguaggio naturale inglese, per esempio tomorrow o next Monday>`

// fieldSetters maps a lower-cased line label to the field it fills
var fieldSetters = map[string]func(f *domain.ExtractedFields, v string){
	"titolo":       func(f *domain.ExtractedFields, v string) { f.Title = v },
	"descrizione":  func(f *domain.ExtractedFields, v string) { f.Description = v },
	"luogo":        func(f *domain.ExtractedFields, v string) { f.Location = v },
	"partecipanti": func(f *domain.ExtractedFields, v string) { f.Attendees = splitAttendees(v) },
	"data":         func(f *domain.ExtractedFields, v string) { f.DateText = v },
	"orario":       func(f *domain.ExtractedFields, v string) { f.TimeText = v },
	"area":         func(f *domain.ExtractedFields, v string) { f.Area = v },
	"contenuto":    func(f *domain.ExtractedFields, v string) { f.Content = v },
	"priorità":     func(f *domain.ExtractedFields, v string) { f.Priority = v },
	"priorita":     func(f *domain.ExtractedFields, v string) { f.Priority = v },
	"scadenza":     func(f *domain.ExtractedFields, v string) { f.DueText = v },
}

// placeholderValues are answers the model gives for a field it has no value for
var placeholderValues = map[string]bool{
	"vuoto":   true,
	"nessuno": true,
	"n/a":     true,
	"none":    true,
	"-":       true,
}

// FieldExtractor asks the model for labeled lines and parses them into fields
type FieldExtractor struct {
	llm   ai.CompletionService
	model string
	now   func() time.Time
}

func NewFieldExtractor(llm ai.CompletionService, model string) *FieldExtractor {
	return &FieldExtractor{llm: llm, model: model, now: time.Now}
}

// Extract runs one extraction prompt for intent and checks the required fields
func (e *FieldExtractor) Extract(ctx context.Context, transcript domain.Transcript, intent domain.Intent, loc *time.Location) (*domain.ExtractedFields, error) {
	var prompt string
	switch intent {
	case domain.IntentCreateEvent:
		if loc == nil {
			loc = time.UTC
		}
		prompt = fmt.Sprintf(eventExtractionPrompt, e.now().In(loc).Format("02/01/2006 (Monday)"))
	case domain.IntentCreateTask:
		prompt = taskExtractionPrompt
	default:
		return nil, domain.NewExtractionError(fmt.Errorf("no extraction for intent %q", intent))
	}

	answer, err := e.llm.Complete(ctx, ai.CompletionRequest{
		Model: e.model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: prompt},
			{Role: ai.RoleUser, Content: transcript.Text},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, domain.NewExtractionError(err)
	}

	fields := ParseLabeledLines(answer)
	if err := requireFields(fields, intent); err != nil {
		return nil, err
	}
	return fields, nil
}

// ParseLabeledLines reads "<Label>: <value>" lines. Unknown labels and prose are
// skipped and the first occurrence of a label wins. Text is never evaluated.
func ParseLabeledLines(text string) *domain.ExtractedFields {
	fields := &domain.ExtractedFields{}
	seen := make(map[string]bool)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*• \t")
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.Trim(strings.TrimSpace(label), "*_"))
		set, known := fieldSetters[key]
		if !known || seen[key] {
			continue
		}
		value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_"))
		if value == "" || placeholderValues[strings.ToLower(value)] {
			continue
		}
		seen[key] = true
		set(fields, value)
	}
	return fields
}

func requireFields(f *domain.ExtractedFields, intent domain.Intent) error {
	var missing []string
	if f.Title == "" {
		missing = append(missing, "Titolo")
	}
	if intent == domain.IntentCreateEvent {
		if f.DateText == "" {
			missing = append(missing, "Data")
		}
		if f.TimeText == "" {
			missing = append(missing, "Orario")
		}
	}
	if len(missing) > 0 {
		return domain.NewExtractionError(fmt.Errorf("%w: %s", domain.ErrMissingRequiredField, strings.Join(missing, ", ")))
	}
	return nil
}

func splitAttendees(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
		addr := strings.TrimSpace(part)
		if strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return out
}
