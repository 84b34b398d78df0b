package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cacconnect/registrar/internal/oracle"
	"github.com/cacconnect/registrar/internal/schema"
	"github.com/cacconnect/registrar/internal/store"
)

// Extractor asks the oracle for a structured partial profile update based on
// a bounded conversation window.
type Extractor struct {
	llm    *oracle.Client
	logger *slog.Logger
}

func New(llm *oracle.Client, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract sends the window plus the registration field schema to the oracle
// and returns the validated dotted-path updates. Fields that fail validation
// are dropped individually; an oracle failure returns an error and no update,
// and callers proceed without one.
func (e *Extractor) Extract(ctx context.Context, window []store.Turn) (map[string]string, error) {
	messages := []oracle.Message{
		{Role: "user", Content: renderWindow(window)},
	}

	raw, err := e.llm.CompleteStructured(ctx, systemPrompt, messages, "registration_fields", schema.ExtractionSchema())
	if err != nil {
		return nil, fmt.Errorf("oracle extraction: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		e.logger.Error("failed to parse extraction response", "error", err, "raw", string(raw))
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	update := make(map[string]string)
	for _, spec := range schema.Fields {
		v, ok := fields[spec.Path]
		if !ok || v == nil {
			continue
		}
		s, ok := e.validate(spec, v)
		if !ok {
			continue
		}
		update[spec.Path] = s
	}

	e.logger.Info("extraction complete", "fields", len(update))
	return update, nil
}

// validate normalizes one extracted value. Returns false to drop the field.
func (e *Extractor) validate(spec schema.FieldSpec, v any) (string, bool) {
	switch spec.Kind {
	case schema.KindDate:
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		if _, err := time.Parse(schema.DateFormat, s); err != nil {
			e.logger.Warn("dropping field with invalid date", "path", spec.Path, "value", s)
			return "", false
		}
		return s, true
	case schema.KindInteger:
		n, ok := coerceInt(v)
		if !ok {
			e.logger.Warn("dropping non-integer field", "path", spec.Path, "value", v)
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	default:
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
}

func coerceInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func renderWindow(window []store.Turn) string {
	var b strings.Builder
	for _, t := range window {
		b.WriteString(t.Sender)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
