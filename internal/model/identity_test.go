package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountDocumentPath(t *testing.T) {
	t.Parallel()

	account := Account{PhotoPath: "vendors/v1/photo/a1-avatar.png", KYCPath: "vendors/v1/kyc/b2-license.pdf"}

	require.Equal(t, account.PhotoPath, account.DocumentPath(SlotPhoto))
	require.Equal(t, account.KYCPath, account.DocumentPath(SlotKYC))
	require.Empty(t, account.DocumentPath("insurance"))

	require.True(t, IsDocumentSlot(SlotPhoto))
	require.True(t, IsDocumentSlot(SlotKYC))
	require.False(t, IsDocumentSlot("Photo"))
}
