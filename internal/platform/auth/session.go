package auth

import (
	"context"

	"github.com/clinic/frontdesk/internal/domain/clinic"
)

type contextKey string

const SessionKey contextKey = "session"

// Session identifies the caller of an operation. It is always passed
// explicitly; nothing in the domain reads a global current user.
type Session struct {
	Username string      `json:"username"`
	Role     clinic.Role `json:"role"`
	EntityID string      `json:"entity_id,omitempty"`
}

func (s Session) Is(role clinic.Role) bool { return s.Role == role }

// WithSession stores s on ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext returns the session stored by SessionMiddleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionKey).(Session)
	return s, ok
}
