package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/service"
	"freight-backoffice/pkg/apierror"
)

// PortalHandler serves vendors and customers their own records. Every
// lookup is scoped to the session identity.
type PortalHandler struct {
	accounts      *service.AccountService
	loads         *service.LoadService
	wallet        *service.WalletService
	maxUploadSize int64
}

func NewPortalHandler(accounts *service.AccountService, loads *service.LoadService, wallet *service.WalletService, maxUploadSize int64) *PortalHandler {
	return &PortalHandler{accounts: accounts, loads: loads, wallet: wallet, maxUploadSize: maxUploadSize}
}

func (h *PortalHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), identity.Role, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *PortalHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	var payload model.UpdateAccountRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Update(r.Context(), actorFromRequest(r), identity.Role, identity.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *PortalHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, model.SlotPhoto)
}

func (h *PortalHandler) UploadKYC(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, model.SlotKYC)
}

func (h *PortalHandler) uploadDocument(w http.ResponseWriter, r *http.Request, slot string) {
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

	account, err := h.accounts.UploadDocument(r.Context(), actorFromRequest(r), identity.Role, identity.ID, slot, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *PortalHandler) Photo(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, model.SlotPhoto)
}

func (h *PortalHandler) KYC(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, model.SlotKYC)
}

func (h *PortalHandler) serveDocument(w http.ResponseWriter, r *http.Request, slot string) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	file, info, err := h.accounts.OpenDocument(r.Context(), identity.Role, identity.ID, slot)
	if err != nil {
		writeError(w, err)
		return
	}

	serveFile(w, r, file, info, "inline", info.Name())
}

func (h *PortalHandler) ListLoads(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	items, meta, err := h.loads.ListForAccount(r.Context(), identity.Role, identity.ID, loadQueryFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *PortalHandler) GetLoad(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	load, err := h.loads.GetForAccount(r.Context(), identity.Role, identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

// RequestLoad lets a customer file a pending load for themselves.
func (h *PortalHandler) RequestLoad(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	var payload model.CreateLoadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.CustomerID = identity.ID

	load, err := h.loads.Create(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, load, nil)
}

// UpdateLoadStatus lets the assigned vendor report pickup and delivery.
func (h *PortalHandler) UpdateLoadStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	var payload model.LoadStatusRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	load, err := h.loads.SetStatusAsVendor(r.Context(), actorFromRequest(r), identity.ID, chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, load, nil)
}

func (h *PortalHandler) ListWallet(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	query := walletQueryFromRequest(r)
	query.OwnerKind = identity.Role
	query.OwnerID = identity.ID

	items, meta, err := h.wallet.List(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *PortalHandler) Balance(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	balance, err := h.wallet.Balance(r.Context(), identity.Role, identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, balance, nil)
}

func (h *PortalHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	txn, err := h.wallet.GetOwned(r.Context(), identity.Role, identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, txn, nil)
}

// SubmitPayment accepts multipart fields amount, reference, note and an
// optional proof file. The transaction stays pending until reviewed.
func (h *PortalHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
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

	amount, err := strconv.ParseFloat(form.value("amount"), 64)
	if err != nil {
		writeError(w, apierror.BadRequest("field 'amount' must be a number", "amount"))
		return
	}

	var proof *service.Upload
	if form.hasFile("proof") {
		file, upload, err := form.file("proof")
		if err != nil {
			writeError(w, err)
			return
		}
		defer file.Close()
		proof = &upload
	}

	txn, err := h.wallet.Submit(r.Context(), actorFromRequest(r), identity.Role, identity.ID, amount, form.value("reference"), form.value("note"), proof)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, txn, nil)
}

func (h *PortalHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
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

	file, upload, err := form.file("proof")
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	txn, err := h.wallet.AttachProof(r.Context(), actorFromRequest(r), identity.Role, identity.ID, chi.URLParam(r, "id"), upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, txn, nil)
}

func (h *PortalHandler) Proof(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}

	txn, err := h.wallet.GetOwned(r.Context(), identity.Role, identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	serveProof(w, r, h.wallet, txn)
}
