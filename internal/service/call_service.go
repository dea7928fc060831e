package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/storage"
	"freight-backoffice/pkg/apierror"
)

type callStore interface {
	Create(ctx context.Context, c model.Call) error
	FindByID(ctx context.Context, id string) (model.Call, error)
	List(ctx context.Context, query model.CallQuery) ([]model.Call, model.Meta, error)
	SoftDelete(ctx context.Context, id string) error
}

// CallService moves files between staff members. A call is only visible to
// its sender and recipient; sudo sees every call.
type CallService struct {
	calls  callStore
	staff  identityFinder
	files  FileStore
	policy UploadPolicy
	audit  *AuditService
}

func NewCallService(calls callStore, staff identityFinder, files FileStore, policy UploadPolicy, audit *AuditService) *CallService {
	return &CallService{calls: calls, staff: staff, files: files, policy: policy, audit: audit}
}

type SendCallInput struct {
	RecipientID string
	Title       string
	Note        string
	File        Upload
}

func canSeeCall(viewer model.Identity, c model.Call) bool {
	return viewer.Role == model.RoleSudo || c.SenderID == viewer.ID || c.RecipientID == viewer.ID
}

// findRecipient accepts any active admin or sudo.
func (s *CallService) findRecipient(ctx context.Context, id string) (model.Identity, error) {
	for _, role := range []string{model.RoleAdmin, model.RoleSudo} {
		identity, err := s.staff.FindByID(ctx, role, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.Identity{}, err
		}
		if identity.IsActive() {
			return identity, nil
		}
	}
	return model.Identity{}, apierror.BadRequest("unknown recipient", id)
}

func (s *CallService) Send(ctx context.Context, actor model.AuditActor, sender model.Identity, in SendCallInput) (model.Call, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Call{}, apierror.BadRequest("title is required", "")
	}
	recipient, err := s.findRecipient(ctx, strings.TrimSpace(in.RecipientID))
	if err != nil {
		return model.Call{}, err
	}

	call := model.Call{
		ID:          uuid.NewString(),
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Title:       title,
		Note:        strings.TrimSpace(in.Note),
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := saveUpload(s.files, s.policy, storage.CollectionCalls+"/"+call.ID, in.File, uploadOptions{keepName: true})
	if err != nil {
		return model.Call{}, err
	}
	call.FileName = stored.Name
	call.FilePath = stored.Path
	call.Size = stored.Size
	call.MimeType = stored.MimeType

	err = s.calls.Create(ctx, call)
	s.audit.Record(ctx, "call.upload", actor, "calls/"+call.ID, nil,
		map[string]any{"recipient_id": recipient.ID, "file": call.FileName, "size": call.Size}, err)
	if err != nil {
		_ = s.files.Remove(storage.CollectionCalls + "/" + call.ID)
		return model.Call{}, err
	}
	return call, nil
}

func (s *CallService) List(ctx context.Context, viewer model.Identity, box string, page int, limit int) ([]model.Call, model.Meta, error) {
	return s.calls.List(ctx, model.CallQuery{
		ViewerID: viewer.ID,
		AllCalls: viewer.Role == model.RoleSudo && box == "",
		Box:      box,
		Page:     page,
		Limit:    limit,
	})
}

// Get hides calls the viewer is not party to behind ErrNotFound.
func (s *CallService) Get(ctx context.Context, viewer model.Identity, id string) (model.Call, error) {
	call, err := s.calls.FindByID(ctx, id)
	if err != nil {
		return model.Call{}, err
	}
	if !canSeeCall(viewer, call) {
		return model.Call{}, model.ErrNotFound
	}
	return call, nil
}

func (s *CallService) Open(ctx context.Context, viewer model.Identity, id string) (model.Call, *os.File, os.FileInfo, error) {
	call, err := s.Get(ctx, viewer, id)
	if err != nil {
		return model.Call{}, nil, nil, err
	}
	file, info, err := openStored(s.files, call.FilePath)
	if err != nil {
		return model.Call{}, nil, nil, err
	}
	return call, file, info, nil
}

func (s *CallService) Delete(ctx context.Context, actor model.AuditActor, viewer model.Identity, id string) error {
	call, err := s.Get(ctx, viewer, id)
	if err != nil {
		return err
	}

	// The recording stays on disk with the soft-deleted row.
	err = s.calls.SoftDelete(ctx, call.ID)
	s.audit.Record(ctx, "call.delete", actor, "calls/"+call.ID, map[string]any{"file": call.FileName}, nil, err)
	return err
}
