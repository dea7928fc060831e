package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
)

type WalletHandler struct {
	service *service.WalletService
}

func NewWalletHandler(service *service.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	items, meta, err := h.service.List(r.Context(), walletQueryFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, txn, nil)
}

func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateTransactionRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.service.Create(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, txn, nil)
}

func (h *WalletHandler) Review(w http.ResponseWriter, r *http.Request) {
	var payload model.ReviewTransactionRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	txn, err := h.service.Review(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, txn, nil)
}

// Balance handles GET /balance?owner_kind=&owner_id=.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	balance, err := h.service.Balance(r.Context(), query.Get("owner_kind"), strings.TrimSpace(query.Get("owner_id")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, balance, nil)
}

func (h *WalletHandler) Proof(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	serveProof(w, r, h.service, txn)
}

func serveProof(w http.ResponseWriter, r *http.Request, wallet *service.WalletService, txn model.WalletTransaction) {
	file, info, err := wallet.OpenProof(txn)
	if err != nil {
		writeError(w, err)
		return
	}

	serveFile(w, r, file, info, "inline", path.Base(txn.ProofPath))
}

func walletQueryFromRequest(r *http.Request) model.WalletQuery {
	query := r.URL.Query()
	return model.WalletQuery{
		OwnerKind: strings.TrimSpace(query.Get("owner_kind")),
		OwnerID:   strings.TrimSpace(query.Get("owner_id")),
		Status:    strings.TrimSpace(query.Get("status")),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		Limit:     parseIntOrDefault(query.Get("limit"), 50),
	}
}
