package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/model"
	"freight-backoffice/internal/storage"
)

func TestCallServiceVisibility(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	call := model.Call{ID: "k1", SenderID: "a1", RecipientID: "a2", FilePath: "calls/k1/bol.pdf"}
	calls := &mockCallStore{}
	calls.On("FindByID", ctx, "k1").Return(call, nil)

	service := NewCallService(calls, &mockIdentityStore{}, nil, UploadPolicy{}, nil)

	for _, viewer := range []model.Identity{
		{ID: "a1", Role: model.RoleAdmin},
		{ID: "a2", Role: model.RoleAdmin},
		{ID: "root", Role: model.RoleSudo},
	} {
		got, err := service.Get(ctx, viewer, "k1")
		require.NoError(t, err, viewer.ID)
		require.Equal(t, "k1", got.ID)
	}

	_, err := service.Get(ctx, model.Identity{ID: "a3", Role: model.RoleAdmin}, "k1")
	require.ErrorIs(t, err, model.ErrNotFound)

	err = service.Delete(ctx, staffActor, model.Identity{ID: "a3", Role: model.RoleAdmin}, "k1")
	require.ErrorIs(t, err, model.ErrNotFound)
	calls.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestCallServiceSendAndOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	staff := &mockIdentityStore{}
	staff.On("FindByID", ctx, model.RoleAdmin, "a2").
		Return(model.Identity{ID: "a2", Role: model.RoleAdmin, Status: model.StatusActive}, nil)
	staff.On("FindByID", ctx, model.RoleAdmin, "nobody").Return(model.Identity{}, model.ErrNotFound)
	staff.On("FindByID", ctx, model.RoleSudo, "nobody").Return(model.Identity{}, model.ErrNotFound)

	var created model.Call
	calls := &mockCallStore{}
	calls.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(model.Call)
	}).Return(nil).Once()

	service := NewCallService(calls, staff, files, UploadPolicy{}, nil)
	sender := model.Identity{ID: "a1", Role: model.RoleAdmin}

	call, err := service.Send(ctx, staffActor, sender, SendCallInput{
		RecipientID: "a2",
		Title:       "Signed BOL",
		File:        Upload{Filename: "bol.pdf", Body: strings.NewReader("%PDF-1.4 bol")},
	})
	require.NoError(t, err)
	require.Equal(t, "calls/"+call.ID+"/bol.pdf", call.FilePath)
	require.Equal(t, "application/pdf", call.MimeType)
	require.Equal(t, call, created)

	calls.On("FindByID", ctx, call.ID).Return(call, nil)
	_, file, info, err := service.Open(ctx, model.Identity{ID: "a2", Role: model.RoleAdmin}, call.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "%PDF-1.4 bol", string(content))
	require.EqualValues(t, len(content), info.Size())

	_, err = service.Send(ctx, staffActor, sender, SendCallInput{
		RecipientID: "nobody",
		Title:       "x",
		File:        Upload{Filename: "x.pdf", Body: strings.NewReader("x")},
	})
	require.Error(t, err)
}

func TestCallServiceDeleteKeepsRecording(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	files, err := storage.New(t.TempDir())
	require.NoError(t, err)
	_, err = files.Save("calls/k1/bol.pdf", strings.NewReader("%PDF-1.4 bol"), 0)
	require.NoError(t, err)

	call := model.Call{ID: "k1", SenderID: "a1", RecipientID: "a2", FileName: "bol.pdf", FilePath: "calls/k1/bol.pdf"}
	calls := &mockCallStore{}
	calls.On("FindByID", ctx, "k1").Return(call, nil)
	calls.On("SoftDelete", ctx, "k1").Return(nil).Once()

	service := NewCallService(calls, &mockIdentityStore{}, files, UploadPolicy{}, nil)
	require.NoError(t, service.Delete(ctx, staffActor, model.Identity{ID: "a1", Role: model.RoleAdmin}, "k1"))

	file, _, err := files.Open(call.FilePath)
	require.NoError(t, err, "soft-deleted calls keep their file")
	require.NoError(t, file.Close())
	calls.AssertExpectations(t)
}

func TestCallServiceListScopes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	calls := &mockCallStore{}
	calls.On("List", ctx, model.CallQuery{ViewerID: "a1", Box: "inbox", Page: 1, Limit: 20}).
		Return([]model.Call{}, model.Meta{}, nil).Once()
	calls.On("List", ctx, model.CallQuery{ViewerID: "root", AllCalls: true, Page: 1, Limit: 20}).
		Return([]model.Call{}, model.Meta{}, nil).Once()

	service := NewCallService(calls, &mockIdentityStore{}, nil, UploadPolicy{}, nil)

	_, _, err := service.List(ctx, model.Identity{ID: "a1", Role: model.RoleAdmin}, "inbox", 1, 20)
	require.NoError(t, err)
	_, _, err = service.List(ctx, model.Identity{ID: "root", Role: model.RoleSudo}, "", 1, 20)
	require.NoError(t, err)
	calls.AssertExpectations(t)
}
