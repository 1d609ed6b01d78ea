// Package credentials keeps the secret access token of each connected platform.
package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/store"
)

type credential struct {
	Platform  platform.Platform `json:"platform"`
	Token     string            `json:"token"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store holds one access token per platform. All calls are serialized.
type Store struct {
	mu     sync.Mutex
	tokens *store.Collection[credential]
}

func New(s store.Store) *Store {
	return &Store{
		tokens: store.NewCollection(s, store.KindCredential, func(c *credential) string {
			return string(c.Platform)
		}),
	}
}

// Token returns the stored token for p and whether one exists.
func (s *Store) Token(ctx context.Context, p platform.Platform) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.tokens.Get(ctx, string(p))
	if err != nil {
		return "", false, err
	}
	if c == nil || c.Token == "" {
		return "", false, nil
	}
	return c.Token, true, nil
}

// SetToken replaces the token stored for p.
func (s *Store) SetToken(ctx context.Context, p platform.Platform, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens.Save(ctx, &credential{Platform: p, Token: token, UpdatedAt: time.Now().UTC()})
}

// Delete forgets the token stored for p.
func (s *Store) Delete(ctx context.Context, p platform.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens.Delete(ctx, string(p))
}
