package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
)

// AccountHandler serves the staff view of one portal role. The router
// mounts one instance for vendors and one for customers.
type AccountHandler struct {
	service *service.AccountService
	role    string
}

func NewAccountHandler(service *service.AccountService, role string) *AccountHandler {
	return &AccountHandler{service: service, role: role}
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	items, meta, err := h.service.List(r.Context(), h.role, accountQueryFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Get(r.Context(), h.role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateAccountRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.Create(r.Context(), actorFromRequest(r), h.role, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, account, nil)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateAccountRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.Update(r.Context(), actorFromRequest(r), h.role, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *AccountHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateStatusRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.SetStatus(r.Context(), actorFromRequest(r), h.role, chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *AccountHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdatePermissionsRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.SetPermissions(r.Context(), actorFromRequest(r), h.role, chi.URLParam(r, "id"), payload.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFromRequest(r), h.role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
}

func (h *AccountHandler) KYC(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, model.SlotKYC)
}

func (h *AccountHandler) Photo(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, model.SlotPhoto)
}

func (h *AccountHandler) serveDocument(w http.ResponseWriter, r *http.Request, slot string) {
	file, info, err := h.service.OpenDocument(r.Context(), h.role, chi.URLParam(r, "id"), slot)
	if err != nil {
		writeError(w, err)
		return
	}

	serveFile(w, r, file, info, "inline", info.Name())
}
