package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/storage"
	"freight-backoffice/pkg/apierror"
)

type walletStore interface {
	Create(ctx context.Context, t model.WalletTransaction) error
	FindByID(ctx context.Context, id string) (model.WalletTransaction, error)
	List(ctx context.Context, query model.WalletQuery) ([]model.WalletTransaction, model.Meta, error)
	Review(ctx context.Context, id string, decision string, reviewerID string, note string) (model.WalletTransaction, error)
	SetProof(ctx context.Context, id string, path string) error
	Balance(ctx context.Context, ownerKind string, ownerID string) (model.WalletBalance, error)
}

type WalletService struct {
	wallet   walletStore
	accounts accountFinder
	files    FileStore
	policy   UploadPolicy
	bus      event.Bus
	audit    *AuditService
}

func NewWalletService(wallet walletStore, accounts accountFinder, files FileStore, policy UploadPolicy, bus event.Bus, audit *AuditService) *WalletService {
	return &WalletService{wallet: wallet, accounts: accounts, files: files, policy: policy, bus: bus, audit: audit}
}

// requireOwner rejects transactions for missing or soft-deleted accounts.
func (s *WalletService) requireOwner(ctx context.Context, kind string, id string) error {
	account, err := s.accounts.FindByID(ctx, kind, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && account.IsDeleted) {
		return apierror.BadRequest("unknown "+kind, id)
	}
	return err
}

// Create records a staff-entered transaction. It is approved on entry.
func (s *WalletService) Create(ctx context.Context, actor model.AuditActor, req model.CreateTransactionRequest) (model.WalletTransaction, error) {
	kind := strings.ToLower(strings.TrimSpace(req.OwnerKind))
	if err := s.requireOwner(ctx, kind, req.OwnerID); err != nil {
		return model.WalletTransaction{}, err
	}

	now := time.Now().UTC()
	txn := model.WalletTransaction{
		ID:         uuid.NewString(),
		OwnerKind:  kind,
		OwnerID:    req.OwnerID,
		Direction:  strings.ToLower(strings.TrimSpace(req.Direction)),
		Amount:     req.Amount,
		Reference:  strings.TrimSpace(req.Reference),
		Note:       strings.TrimSpace(req.Note),
		Status:     model.TxnApproved,
		CreatedBy:  actor.Role + ":" + actor.UserID,
		ReviewedBy: actor.UserID,
		ReviewedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.wallet.Create(ctx, txn)
	s.audit.Record(ctx, "wallet.create", actor, "wallet/"+txn.ID, nil, txn, err)
	if err != nil {
		return model.WalletTransaction{}, err
	}
	return txn, nil
}

// Submit records a payment made by a vendor or customer. It stays pending
// until staff review the attached proof.
func (s *WalletService) Submit(ctx context.Context, actor model.AuditActor, kind string, ownerID string, amount float64, reference string, note string, proof *Upload) (model.WalletTransaction, error) {
	if amount <= 0 {
		return model.WalletTransaction{}, apierror.BadRequest("amount must be greater than zero", "")
	}

	now := time.Now().UTC()
	txn := model.WalletTransaction{
		ID:        uuid.NewString(),
		OwnerKind: kind,
		OwnerID:   ownerID,
		Direction: model.DirectionCredit,
		Amount:    amount,
		Reference: strings.TrimSpace(reference),
		Note:      strings.TrimSpace(note),
		Status:    model.TxnPending,
		CreatedBy: kind + ":" + ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if proof != nil {
		stored, err := saveUpload(s.files, s.policy, storage.CollectionWallet+"/"+txn.ID, *proof, uploadOptions{})
		if err != nil {
			return model.WalletTransaction{}, err
		}
		txn.ProofPath = stored.Path
	}

	err := s.wallet.Create(ctx, txn)
	s.audit.Record(ctx, "wallet.submit", actor, "wallet/"+txn.ID, nil, txn, err)
	if err != nil {
		if txn.ProofPath != "" {
			_ = s.files.Remove(txn.ProofPath)
		}
		return model.WalletTransaction{}, err
	}

	publish(s.bus, event.TypeWalletSubmitted, ownerID, walletPayload(txn))
	return txn, nil
}

// Review approves or rejects a pending transaction. Anything already
// reviewed fails with ErrInvalidTransition.
func (s *WalletService) Review(ctx context.Context, actor model.AuditActor, id string, req model.ReviewTransactionRequest) (model.WalletTransaction, error) {
	decision := strings.ToLower(strings.TrimSpace(req.Decision))
	if decision != model.TxnApproved && decision != model.TxnRejected {
		return model.WalletTransaction{}, apierror.BadRequest("decision must be approved or rejected", req.Decision)
	}

	txn, err := s.wallet.Review(ctx, id, decision, actor.UserID, strings.TrimSpace(req.Note))
	s.audit.Record(ctx, "wallet.review", actor, "wallet/"+id, nil, map[string]any{"decision": decision}, err)
	if err != nil {
		return model.WalletTransaction{}, err
	}

	publish(s.bus, event.TypeWalletReviewed, actor.UserID, walletPayload(txn))
	return txn, nil
}

func walletPayload(txn model.WalletTransaction) event.WalletPayload {
	return event.WalletPayload{
		TransactionID: txn.ID,
		OwnerKind:     txn.OwnerKind,
		OwnerID:       txn.OwnerID,
		Direction:     txn.Direction,
		Amount:        txn.Amount,
		Status:        txn.Status,
	}
}

func (s *WalletService) Get(ctx context.Context, id string) (model.WalletTransaction, error) {
	return s.wallet.FindByID(ctx, id)
}

func (s *WalletService) List(ctx context.Context, query model.WalletQuery) ([]model.WalletTransaction, model.Meta, error) {
	return s.wallet.List(ctx, query)
}

func (s *WalletService) Balance(ctx context.Context, kind string, ownerID string) (model.WalletBalance, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if err := checkPortalRole(kind); err != nil {
		return model.WalletBalance{}, apierror.BadRequest("owner_kind must be vendor or customer", kind)
	}
	return s.wallet.Balance(ctx, kind, ownerID)
}

// GetOwned returns the transaction only if it belongs to the given owner.
func (s *WalletService) GetOwned(ctx context.Context, kind string, ownerID string, id string) (model.WalletTransaction, error) {
	txn, err := s.wallet.FindByID(ctx, id)
	if err != nil {
		return model.WalletTransaction{}, err
	}
	if txn.OwnerKind != kind || txn.OwnerID != ownerID {
		return model.WalletTransaction{}, model.ErrNotFound
	}
	return txn, nil
}

func (s *WalletService) OpenProof(txn model.WalletTransaction) (*os.File, os.FileInfo, error) {
	return openStored(s.files, txn.ProofPath)
}

// AttachProof replaces the proof file of the owner's pending transaction.
func (s *WalletService) AttachProof(ctx context.Context, actor model.AuditActor, kind string, ownerID string, id string, proof Upload) (model.WalletTransaction, error) {
	txn, err := s.GetOwned(ctx, kind, ownerID, id)
	if err != nil {
		return model.WalletTransaction{}, err
	}
	if txn.Status != model.TxnPending {
		return model.WalletTransaction{}, model.ErrInvalidTransition
	}

	stored, err := saveUpload(s.files, s.policy, storage.CollectionWallet+"/"+txn.ID, proof, uploadOptions{})
	if err != nil {
		return model.WalletTransaction{}, err
	}

	err = s.wallet.SetProof(ctx, txn.ID, stored.Path)
	s.audit.Record(ctx, "wallet.proof", actor, "wallet/"+txn.ID, nil, map[string]any{"file": stored.Name}, err)
	if err != nil {
		_ = s.files.Remove(stored.Path)
		return model.WalletTransaction{}, err
	}

	if txn.ProofPath != "" {
		_ = s.files.Remove(txn.ProofPath)
	}
	txn.ProofPath = stored.Path
	return txn, nil
}
