// Package profile holds the accumulating registration record for one session
// and the resolver that computes what is still missing from it.
package profile

import (
	"time"

	"github.com/cacconnect/registrar/internal/schema"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Profile is one session's collected registration data. FieldValues is a
// flat object keyed by dotted path; it is decoded from a stored document, so
// values can in principle carry any JSON type. Only non-empty strings count
// as collected.
type Profile struct {
	SessionKey        string
	Status            Status
	FieldValues       map[string]any
	UploadedDocuments map[string]string
	CreatedAt         time.Time
	LastUpdatedAt     time.Time
}

// Field returns the collected value for a dotted path. A value of the wrong
// type or an empty string reports false, same as an absent key.
func (p *Profile) Field(path string) (string, bool) {
	v, ok := p.FieldValues[path]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// HasDocument reports whether a document of the given kind has been uploaded.
func (p *Profile) HasDocument(kind schema.DocumentKind) bool {
	return p.UploadedDocuments[string(kind)] != ""
}

// Missing returns the prompts for everything still unset, field prompts in
// declared order followed by document prompts in declared order. Pure
// function of the profile snapshot.
func Missing(p *Profile) []string {
	var out []string
	for _, f := range schema.Fields {
		if _, ok := p.Field(f.Path); !ok {
			out = append(out, f.Prompt)
		}
	}
	for _, d := range schema.Documents {
		if !p.HasDocument(d.Kind) {
			out = append(out, d.Prompt)
		}
	}
	return out
}
