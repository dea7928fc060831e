package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"freight-backoffice/internal/model"
)

func TestHashPasswordFromArgAndStdin(t *testing.T) {
	for _, tc := range []struct {
		name  string
		args  []string
		stdin string
	}{
		{"argument", []string{"hash-password", "s3cret-pass"}, ""},
		{"stdin", []string{"hash-password"}, "s3cret-pass\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			root := newRootCmd()
			root.SetOut(&out)
			root.SetIn(strings.NewReader(tc.stdin))
			root.SetArgs(tc.args)

			require.NoError(t, root.Execute())

			hash := strings.TrimSpace(out.String())
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
		})
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetIn(strings.NewReader("\n"))
	root.SetArgs([]string{"hash-password"})

	require.Error(t, root.Execute())
}

func TestCreateSudoRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"create-sudo", "--username", "root", "--email", "root@example.com", "--password", "longenough", "--database-url", ""})

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestNewSudoIdentity(t *testing.T) {
	identity, err := newSudoIdentity(" root ", "Root@Example.com", "longenough")
	require.NoError(t, err)
	require.Equal(t, "root", identity.Username)
	require.Equal(t, "root@example.com", identity.Email)
	require.Equal(t, model.RoleSudo, identity.Role)
	require.True(t, identity.IsActive())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte("longenough")))

	_, err = newSudoIdentity("ro", "root@example.com", "longenough")
	require.Error(t, err)
	_, err = newSudoIdentity("root", "nope", "longenough")
	require.Error(t, err)
	_, err = newSudoIdentity("root", "root@example.com", "short")
	require.Error(t, err)
}
