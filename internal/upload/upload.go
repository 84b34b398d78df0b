// Package upload stores identity documents on disk and records their
// location against the session's profile.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cacconnect/registrar/internal/events"
	"github.com/cacconnect/registrar/internal/schema"
)

// ErrInvalidUpload marks client-input problems: unknown document kind,
// disallowed extension, missing parts. The API layer maps it to 400.
var ErrInvalidUpload = errors.New("invalid upload")

// Only image types are accepted.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Recorder is the slice of the profile store the handler needs.
type Recorder interface {
	RecordUpload(ctx context.Context, sessionKey, kind, location string) error
}

// Publisher emits lifecycle events. Optional.
type Publisher interface {
	Publish(subject string, data any) error
}

type Handler struct {
	dir      string
	profiles Recorder
	events   Publisher
	logger   *slog.Logger
}

func NewHandler(dir string, profiles Recorder, events Publisher, logger *slog.Logger) *Handler {
	return &Handler{dir: dir, profiles: profiles, events: events, logger: logger}
}

// Handle validates and persists one uploaded document, records it on the
// profile (creating the skeleton if the session never chatted), and returns
// the URL path the file is served under.
func (h *Handler) Handle(ctx context.Context, sessionKey, kind string, data []byte, originalName string) (string, error) {
	if sessionKey == "" {
		return "", fmt.Errorf("%w: missing session_id", ErrInvalidUpload)
	}
	if !schema.ValidDocumentKind(kind) {
		return "", fmt.Errorf("%w: unknown file_type %q", ErrInvalidUpload, kind)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: file type %q is not allowed", ErrInvalidUpload, ext)
	}

	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	name := fmt.Sprintf("%s_%s_%s_%s%s", sanitize(sessionKey), kind, uuid.New().String(), sanitize(base), ext)

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	location := "/uploads/" + name
	if err := h.profiles.RecordUpload(ctx, sessionKey, kind, location); err != nil {
		return "", fmt.Errorf("record upload: %w", err)
	}

	if h.events != nil {
		if err := h.events.Publish(events.SubjectDocumentUploaded, map[string]any{
			"session_key": sessionKey,
			"kind":        kind,
			"location":    location,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			h.logger.Error("event publish failed", "subject", events.SubjectDocumentUploaded, "error", err)
		}
	}

	h.logger.Info("document uploaded",
		"session_key", sessionKey,
		"kind", kind,
		"file", name,
		"bytes", len(data),
	)
	return location, nil
}

// sanitize keeps filenames safe for disk and URLs.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
