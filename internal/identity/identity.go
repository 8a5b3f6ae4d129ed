package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// ErrUnauthenticated is returned when no authenticated user can be resolved
// for the current operation. Turn persistence fails closed on it.
var ErrUnauthenticated = errors.New("no authenticated user")

// User is the authenticated identity attached to persisted turns.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Resolver resolves the authenticated user for an operation.
type Resolver interface {
	Resolve(ctx context.Context) (User, error)
}

type tokenKey struct{}

// WithToken stores a bearer token on the context for later resolution.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by the context, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// SupabaseResolver verifies bearer tokens against the Supabase auth API.
type SupabaseResolver struct {
	client *supabase.Client
}

// NewSupabaseResolver builds a resolver for the given project.
func NewSupabaseResolver(url, anonKey string) (*SupabaseResolver, error) {
	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseResolver{client: client}, nil
}

// Resolve looks up the user behind the request's bearer token.
func (r *SupabaseResolver) Resolve(ctx context.Context) (User, error) {
	token := TokenFrom(ctx)
	if token == "" {
		return User{}, ErrUnauthenticated
	}

	resp, err := r.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return User{ID: resp.ID.String(), Email: resp.Email}, nil
}

// StaticResolver returns a fixed identity. It backs local single-user runs
// and tests; an empty ID still fails closed.
type StaticResolver struct {
	User User
}

// Resolve returns the configured identity.
func (r StaticResolver) Resolve(context.Context) (User, error) {
	if r.User.ID == "" {
		return User{}, ErrUnauthenticated
	}
	return r.User, nil
}
