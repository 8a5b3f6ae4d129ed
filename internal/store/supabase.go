package store

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// Supabase persists turns into a Postgres table through the Supabase REST
// API. Row shape: message, is_assistant, user_id.
type Supabase struct {
	client *supabase.Client
	table  string
}

// NewSupabase builds a store for the given project and table.
func NewSupabase(url, key, table string) (*Supabase, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, table: table}, nil
}

// Insert writes one turn. Failures are reported to the caller and never
// retried here.
func (s *Supabase) Insert(_ context.Context, rec Record) error {
	row := map[string]any{
		"message":      rec.Content,
		"is_assistant": rec.IsAssistant,
		"user_id":      rec.UserID,
	}

	if _, _, err := s.client.From(s.table).Insert(row, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
