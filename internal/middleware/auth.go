package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"freight-backoffice/internal/authz"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/session"
)

type claimDecoder interface {
	Decode(raw string) (model.SessionClaim, error)
}

type identityLoader interface {
	Load(ctx context.Context, realm model.Realm, claim model.SessionClaim) (model.Identity, error)
}

type cookieClearer interface {
	ClearCookie(w http.ResponseWriter, realm model.Realm)
}

type decisionRecorder interface {
	RecordAuthz(allowed bool)
}

// AuthContext is what RequireSession attaches to the request. Realm is the
// realm the identity was loaded from, also for bearer credentials.
type AuthContext struct {
	Identity model.Identity
	Realm    model.Realm
	Claim    model.SessionClaim
}

type contextKey string

const authContextKey contextKey = "auth_context"

type AuthMiddleware struct {
	decoder  claimDecoder
	loader   identityLoader
	cookies  cookieClearer
	recorder decisionRecorder
}

// NewAuthMiddleware builds the session and permission gates. recorder may be nil.
func NewAuthMiddleware(decoder claimDecoder, loader identityLoader, cookies cookieClearer, recorder decisionRecorder) *AuthMiddleware {
	return &AuthMiddleware{decoder: decoder, loader: loader, cookies: cookies, recorder: recorder}
}

func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := session.FromRequest(r)
		if !ok {
			writeUnauthorized(w)
			return
		}

		claim, err := m.decoder.Decode(credential.Token)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		realm := credential.Realm
		if realm == "" {
			realm, _ = model.RealmForRole(claim.Role)
		}

		identity, err := m.loader.Load(r.Context(), credential.Realm, claim)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrInactiveIdentity):
			if realm != "" && m.cookies != nil {
				m.cookies.ClearCookie(w, realm)
			}
			writeUnauthorized(w)
			return
		case errors.Is(err, model.ErrInvalidSession):
			writeUnauthorized(w)
			return
		default:
			slog.Error("load session identity", "role", claim.Role, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, AuthContext{
			Identity: identity,
			Realm:    realm,
			Claim:    claim,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			if _, exists := roleSet[strings.ToLower(auth.Identity.Role)]; !exists {
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Require gates a route on one resource:action capability.
func (m *AuthMiddleware) Require(capability string) func(http.Handler) http.Handler {
	return m.gate(capability, authz.Authorize)
}

// RequireAliased is Require with action-verb aliases, for the call routes.
func (m *AuthMiddleware) RequireAliased(capability string) func(http.Handler) http.Handler {
	return m.gate(capability, authz.AuthorizeAliased)
}

func (m *AuthMiddleware) gate(capability string, decide func(model.Identity, string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			allowed := decide(auth.Identity, capability)
			if m.recorder != nil {
				m.recorder.RecordAuthz(allowed)
			}
			if !allowed {
				slog.Debug("permission denied", "user_id", auth.Identity.ID, "role", auth.Identity.Role, "capability", capability)
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey).(AuthContext)
	return auth, ok
}

// WithAuthContext returns ctx carrying auth. Used by tests of downstream handlers.
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
}

func writeForbidden(w http.ResponseWriter) {
	writeJSONError(w, http.StatusForbidden, "Forbidden")
}
