package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
)

// AdminHandler manages staff accounts. Mounted for sudo sessions only.
type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	items, meta, err := h.service.List(r.Context(), accountQueryFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateAdminRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.service.Create(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, admin, nil)
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateAdminRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.service.Update(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdatePermissionsRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.service.SetPermissions(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateStatusRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	admin, err := h.service.SetStatus(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, admin, nil)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
}

func accountQueryFromRequest(r *http.Request) model.AccountQuery {
	query := r.URL.Query()
	return model.AccountQuery{
		Search: strings.TrimSpace(query.Get("q")),
		Status: strings.TrimSpace(query.Get("status")),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 50),
	}
}
