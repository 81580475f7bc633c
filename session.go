package ubox

import "context"

// Session is the visitor's server-side session as seen by the
// authenticator. Tokens returns nil, nil when nothing has been stored yet.
type Session interface {
	Tokens(ctx context.Context) (*Tokens, error)
	SetTokens(ctx context.Context, tokens *Tokens) error
}

// MemorySession keeps a single token pair in memory.
type MemorySession struct {
	tokens *Tokens
}

func NewMemorySession(tokens *Tokens) *MemorySession {
	return &MemorySession{tokens: tokens}
}

func (s *MemorySession) Tokens(_ context.Context) (*Tokens, error) {
	if s.tokens == nil {
		return nil, nil
	}

	cp := *s.tokens
	return &cp, nil
}

func (s *MemorySession) SetTokens(_ context.Context, tokens *Tokens) error {
	cp := *tokens
	s.tokens = &cp
	return nil
}
