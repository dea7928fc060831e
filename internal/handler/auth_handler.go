package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/middleware"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
)

type sessionCookies interface {
	SetCookie(w http.ResponseWriter, realm model.Realm, token string)
	ClearAll(w http.ResponseWriter)
}

type AuthHandler struct {
	service  *service.AuthService
	accounts *service.AccountService
	cookies  sessionCookies
}

func NewAuthHandler(service *service.AuthService, accounts *service.AccountService, cookies sessionCookies) *AuthHandler {
	return &AuthHandler{service: service, accounts: accounts, cookies: cookies}
}

// Login handles POST /api/auth/{role}/login for every role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(chi.URLParam(r, "role"))
	if _, ok := model.RealmForRole(role); !ok {
		writeError(w, model.ErrNotFound)
		return
	}

	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	token, realm, err := h.service.Login(r.Context(), actorFromRequest(r), role, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.SetCookie(w, realm, token.Token)
	writeSuccess(w, http.StatusOK, token, nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(chi.URLParam(r, "role"))
	if role != model.RoleVendor && role != model.RoleCustomer {
		writeError(w, model.ErrNotFound)
		return
	}

	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.Register(r.Context(), actorFromRequest(r), role, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, account, nil)
}

// Logout expires every session cookie. Tokens are not revoked server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAll(w)
	writeSuccess(w, http.StatusOK, map[string]bool{"logged_out": true}, nil)
}

// Me returns the session identity; vendors and customers get their full
// profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrInvalidSession)
		return
	}

	if auth.Realm == model.RealmUser && h.accounts != nil {
		account, err := h.accounts.Get(r.Context(), auth.Identity.Role, auth.Identity.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, account, nil)
		return
	}

	writeSuccess(w, http.StatusOK, auth.Identity, nil)
}
