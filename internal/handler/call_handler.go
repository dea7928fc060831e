package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/service"
)

// CallHandler serves the inter-admin file exchange.
type CallHandler struct {
	service       *service.CallService
	maxUploadSize int64
}

func NewCallHandler(service *service.CallService, maxUploadSize int64) *CallHandler {
	return &CallHandler{service: service, maxUploadSize: maxUploadSize}
}

// Send accepts multipart fields recipient_id, title, note and file.
func (h *CallHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	form, err := parseMultipart(w, r, h.maxUploadSize)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.cleanup()

	file, upload, err := form.file("file")
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	call, err := h.service.Send(r.Context(), actorFromRequest(r), identity, service.SendCallInput{
		RecipientID: form.value("recipient_id"),
		Title:       form.value("title"),
		Note:        form.value("note"),
		File:        upload,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, call, nil)
}

// List handles GET /?box=inbox|outbox.
func (h *CallHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	items, meta, err := h.service.List(
		r.Context(),
		identity,
		strings.ToLower(strings.TrimSpace(query.Get("box"))),
		parseIntOrDefault(query.Get("page"), 1),
		parseIntOrDefault(query.Get("limit"), 50),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	call, err := h.service.Get(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, call, nil)
}

func (h *CallHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	call, file, info, err := h.service.Open(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	serveFile(w, r, file, info, "attachment", call.FileName)
}

func (h *CallHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actorFromRequest(r), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
}
