package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
)

type LoadHandler struct {
	service *service.LoadService
}

func NewLoadHandler(service *service.LoadService) *LoadHandler {
	return &LoadHandler{service: service}
}

func (h *LoadHandler) List(w http.ResponseWriter, r *http.Request) {
	items, meta, err := h.service.List(r.Context(), loadQueryFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *LoadHandler) Get(w http.ResponseWriter, r *http.Request) {
	load, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

func (h *LoadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateLoadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	load, err := h.service.Create(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, load, nil)
}

func (h *LoadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateLoadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	load, err := h.service.Update(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

func (h *LoadHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var payload model.AssignLoadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	load, err := h.service.Assign(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.VendorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

func (h *LoadHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.LoadStatusRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	load, err := h.service.SetStatus(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

func (h *LoadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
}

func loadQueryFromRequest(r *http.Request) model.LoadQuery {
	query := r.URL.Query()
	return model.LoadQuery{
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		VendorID:   strings.TrimSpace(query.Get("vendor_id")),
		Status:     strings.TrimSpace(query.Get("status")),
		Search:     strings.TrimSpace(query.Get("q")),
		Page:       parseIntOrDefault(query.Get("page"), 1),
		Limit:      parseIntOrDefault(query.Get("limit"), 50),
	}
}
