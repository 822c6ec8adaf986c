package auth

import (
	"context"
	"strings"
	"time"
)

// Session is the authenticated admin performing a request. It is created by the middleware and read
// by handlers; nothing else in the process holds authentication state.
type Session struct {
	UID       string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the session includes the requested role (case-insensitive).
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	role = normaliseRole(role)
	if role == "" {
		return false
	}
	for _, r := range s.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

type sessionContextKey struct{}

// WithSession stores the session within the context for downstream handlers.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext retrieves the session previously stored in context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}
