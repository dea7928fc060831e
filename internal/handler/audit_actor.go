package handler

import (
	"net/http"

	"freight-backoffice/internal/middleware"
	"freight-backoffice/internal/model"
)

func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = auth.Identity.ID
	actor.Username = auth.Identity.Username
	actor.Role = auth.Identity.Role

	return actor
}

// currentIdentity returns the session identity. Routes that call it sit
// behind RequireSession, so a miss means the router is misconfigured.
func currentIdentity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrInvalidSession)
		return model.Identity{}, false
	}
	return auth.Identity, true
}
