package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cacconnect/registrar/internal/profile"
)

// ErrProfileNotFound is returned by GetProfile for an unknown session key.
var ErrProfileNotFound = errors.New("profile not found")

// UpsertSkeleton creates an empty in-progress profile for the session if one
// does not exist. Existing field values are never touched.
func (s *Store) UpsertSkeleton(ctx context.Context, sessionKey string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (session_key, status, field_values, uploaded_documents, created_at, last_updated_at)
		VALUES ($1, $2, '{}'::jsonb, '{}'::jsonb, now(), now())
		ON CONFLICT (session_key) DO NOTHING`,
		sessionKey, profile.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("upsert skeleton: %w", err)
	}
	return nil
}

// ApplyUpdate merges the supplied dotted-path values into field_values. The
// merge is a single jsonb concatenation, so concurrent updates to disjoint
// paths cannot lose each other.
func (s *Store) ApplyUpdate(ctx context.Context, sessionKey string, update map[string]string) error {
	if len(update) == 0 {
		return nil
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE profiles
		SET field_values = field_values || $2::jsonb, last_updated_at = now()
		WHERE session_key = $1`,
		sessionKey, payload,
	)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

// RecordUpload sets (or overwrites) one document-kind entry, creating the
// profile skeleton if the session has never chatted.
func (s *Store) RecordUpload(ctx context.Context, sessionKey, kind, location string) error {
	payload, err := json.Marshal(map[string]string{kind: location})
	if err != nil {
		return fmt.Errorf("marshal upload record: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (session_key, status, field_values, uploaded_documents, created_at, last_updated_at)
		VALUES ($1, $2, '{}'::jsonb, $3::jsonb, now(), now())
		ON CONFLICT (session_key) DO UPDATE
		SET uploaded_documents = profiles.uploaded_documents || EXCLUDED.uploaded_documents,
		    last_updated_at = now()`,
		sessionKey, profile.StatusInProgress, payload,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// GetProfile reads the stored profile document for a session.
func (s *Store) GetProfile(ctx context.Context, sessionKey string) (*profile.Profile, error) {
	p := &profile.Profile{SessionKey: sessionKey}
	var fieldValues, uploadedDocs []byte
	err := s.pool.QueryRow(ctx, `
		SELECT status, field_values, uploaded_documents, created_at, last_updated_at
		FROM profiles
		WHERE session_key = $1`,
		sessionKey,
	).Scan(&p.Status, &fieldValues, &uploadedDocs, &p.CreatedAt, &p.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal(fieldValues, &p.FieldValues); err != nil {
		return nil, fmt.Errorf("decode field values: %w", err)
	}
	if err := json.Unmarshal(uploadedDocs, &p.UploadedDocuments); err != nil {
		return nil, fmt.Errorf("decode uploaded documents: %w", err)
	}
	return p, nil
}

// MarkCompleted flips an in-progress profile to completed. Completed
// profiles are never moved back automatically.
func (s *Store) MarkCompleted(ctx context.Context, sessionKey string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET status = $2, last_updated_at = now()
		WHERE session_key = $1 AND status = $3`,
		sessionKey, profile.StatusCompleted, profile.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}
