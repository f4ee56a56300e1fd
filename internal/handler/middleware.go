package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/session"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	sessionIDKey contextKey = "sessionID"
	actorKey     contextKey = "actor"
)

// SessionMiddleware reads the signed session cookie and injects the session
// id into the context. A missing or invalid cookie starts a new session.
func SessionMiddleware(codec *session.Codec, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, ok := codec.FromRequest(r)
			if !ok {
				sid = session.NewID()
				token, err := codec.Sign(sid)
				if err != nil {
					logger.Error("session: sign cookie failed", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				http.SetCookie(w, codec.Cookie(token))
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the session belongs to
// one of roles. The resolved actor is injected into the context.
func RequireRole(sessions *service.SessionService, logger *zap.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := sessions.Actor(SessionIDFromContext(r.Context()))
			if actor.Role == domain.RoleAnonymous {
				writeError(w, http.StatusUnauthorized, "login necessário")
				return
			}

			for _, role := range roles {
				if actor.Role == role {
					ctx := context.WithValue(r.Context(), actorKey, actor)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			logger.Warn("auth: role not allowed",
				zap.String("path", r.URL.Path),
				zap.String("role", string(actor.Role)),
			)
			writeError(w, http.StatusForbidden, "acesso negado")
		})
	}
}

// SessionIDFromContext extracts the session id set by SessionMiddleware.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// ActorFromContext extracts the actor set by RequireRole.
func ActorFromContext(ctx context.Context) domain.Actor {
	v, ok := ctx.Value(actorKey).(domain.Actor)
	if !ok {
		return domain.Actor{Role: domain.RoleAnonymous}
	}
	return v
}
