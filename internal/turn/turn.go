// Package turn orchestrates one chat turn: log the message, extract profile
// fields from the recent conversation, work out what is still missing, and
// produce the assistant's reply.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cacconnect/registrar/internal/events"
	"github.com/cacconnect/registrar/internal/profile"
	"github.com/cacconnect/registrar/internal/schema"
	"github.com/cacconnect/registrar/internal/store"
)

// ErrBadRequest marks client-input errors (empty message or session key).
var ErrBadRequest = errors.New("bad request")

// historyWindow bounds how much conversation the oracle sees per turn.
const historyWindow = 10

// Log is the conversation-log slice of the store.
type Log interface {
	AppendTurn(ctx context.Context, sessionKey, sender, text string) error
	Window(ctx context.Context, sessionKey string, n int) ([]store.Turn, error)
}

// Profiles is the profile slice of the store.
type Profiles interface {
	UpsertSkeleton(ctx context.Context, sessionKey string) error
	ApplyUpdate(ctx context.Context, sessionKey string, update map[string]string) error
	GetProfile(ctx context.Context, sessionKey string) (*profile.Profile, error)
	MarkCompleted(ctx context.Context, sessionKey string) error
}

// Extractor produces a partial field update from a conversation window.
type Extractor interface {
	Extract(ctx context.Context, window []store.Turn) (map[string]string, error)
}

// Responder produces the next assistant message.
type Responder interface {
	Respond(ctx context.Context, window []store.Turn, missing []string) string
}

// Publisher emits lifecycle events. Optional.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier announces completed registrations. Optional.
type Notifier interface {
	PostCompletion(ctx context.Context, sessionKey string, fieldCount int, documents []string) error
}

type Orchestrator struct {
	log       Log
	profiles  Profiles
	extractor Extractor
	responder Responder
	events    Publisher
	notifier  Notifier
	logger    *slog.Logger
}

func New(log Log, profiles Profiles, ext Extractor, resp Responder, events Publisher, notifier Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		log:       log,
		profiles:  profiles,
		extractor: ext,
		responder: resp,
		events:    events,
		notifier:  notifier,
		logger:    logger,
	}
}

// HandleTurn runs one full chat turn and returns the assistant reply. Oracle
// failures degrade (extraction is skipped, the responder falls back to an
// apology); only storage failures fail the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionKey, userText string) (string, error) {
	if sessionKey == "" {
		return "", fmt.Errorf("%w: missing session_id", ErrBadRequest)
	}
	if userText == "" {
		return "", fmt.Errorf("%w: missing message", ErrBadRequest)
	}

	newSession := false
	if _, err := o.profiles.GetProfile(ctx, sessionKey); err != nil {
		if !errors.Is(err, store.ErrProfileNotFound) {
			return "", err
		}
		newSession = true
	}

	if err := o.log.AppendTurn(ctx, sessionKey, store.SenderUser, userText); err != nil {
		return "", err
	}

	// The window must include the turn just appended so extraction sees it.
	window, err := o.log.Window(ctx, sessionKey, historyWindow)
	if err != nil {
		return "", err
	}

	if err := o.profiles.UpsertSkeleton(ctx, sessionKey); err != nil {
		return "", err
	}
	if newSession {
		o.publish(events.SubjectSessionStarted, map[string]any{
			"session_key": sessionKey,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}

	if !skipExtraction(userText) {
		update, err := o.extractor.Extract(ctx, window)
		if err != nil {
			// Extraction must never block the dialogue.
			o.logger.Warn("extraction failed, continuing without update",
				"session_key", sessionKey, "error", err)
		} else if err := o.profiles.ApplyUpdate(ctx, sessionKey, update); err != nil {
			return "", err
		}
	}

	p, err := o.profiles.GetProfile(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	missing := profile.Missing(p)

	reply := o.responder.Respond(ctx, window, missing)

	if err := o.log.AppendTurn(ctx, sessionKey, store.SenderAssistant, reply); err != nil {
		return "", err
	}

	if len(missing) == 0 && p.Status == profile.StatusInProgress {
		if err := o.profiles.MarkCompleted(ctx, sessionKey); err != nil {
			return "", err
		}
		o.announceCompletion(ctx, sessionKey, p)
	}

	return reply, nil
}

func (o *Orchestrator) announceCompletion(ctx context.Context, sessionKey string, p *profile.Profile) {
	fieldCount := 0
	for _, f := range schema.Fields {
		if _, ok := p.Field(f.Path); ok {
			fieldCount++
		}
	}
	documents := make([]string, 0, len(schema.Documents))
	for _, d := range schema.Documents {
		if p.HasDocument(d.Kind) {
			documents = append(documents, string(d.Kind))
		}
	}

	o.publish(events.SubjectProfileCompleted, map[string]any{
		"session_key": sessionKey,
		"fields":      fieldCount,
		"documents":   documents,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})

	if o.notifier != nil {
		if err := o.notifier.PostCompletion(ctx, sessionKey, fieldCount, documents); err != nil {
			o.logger.Error("completion notice failed", "session_key", sessionKey, "error", err)
		}
	}

	o.logger.Info("profile completed", "session_key", sessionKey)
}

func (o *Orchestrator) publish(subject string, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(subject, data); err != nil {
		o.logger.Error("event publish failed", "subject", subject, "error", err)
	}
}

// skipExtraction is a string-matching shortcut carried over from the source
// system: upload acknowledgements and greetings carry no field data, so those
// turns skip the extraction call. A proper turn-intent signal should replace
// this; keep the check in one place.
func skipExtraction(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "uploaded") || strings.Contains(lower, "hello")
}
