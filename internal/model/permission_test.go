package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePermissionsShapes(t *testing.T) {
	t.Parallel()

	t.Run("array becomes flat list", func(t *testing.T) {
		parsed, err := ParsePermissions([]byte(`["wallet:create","call:upload"]`))
		require.NoError(t, err)
		require.Equal(t, FlatPermissions{"wallet:create", "call:upload"}, parsed)
	})

	t.Run("object becomes matrix", func(t *testing.T) {
		parsed, err := ParsePermissions([]byte(` {"loads":{"view":true,"edit":false}}`))
		require.NoError(t, err)
		require.Equal(t, MatrixPermissions{"loads": {"view": true, "edit": false}}, parsed)
	})

	t.Run("null and empty become empty flat list", func(t *testing.T) {
		for _, raw := range []string{"", "null", "  "} {
			parsed, err := ParsePermissions([]byte(raw))
			require.NoError(t, err)
			require.Equal(t, FlatPermissions{}, parsed)
		}
	})

	t.Run("scalars are rejected", func(t *testing.T) {
		_, err := ParsePermissions([]byte(`"wallet:create"`))
		require.Error(t, err)
	})
}

func TestEncodePermissionsKeepsShape(t *testing.T) {
	t.Parallel()

	encoded, err := EncodePermissions(FlatPermissions(nil))
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(encoded))

	encoded, err = EncodePermissions(MatrixPermissions{"wallet": {"view": true}})
	require.NoError(t, err)
	require.JSONEq(t, `{"wallet":{"view":true}}`, string(encoded))

	encoded, err = EncodePermissions(nil)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(encoded))
}

func TestPermissionsPayloadDecodesEitherShape(t *testing.T) {
	t.Parallel()

	var body UpdatePermissionsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"permissions":{"profile":{"view":true}}}`), &body))
	require.Equal(t, MatrixPermissions{"profile": {"view": true}}, body.Permissions.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"permissions":["vendor:view"]}`), &body))
	require.Equal(t, FlatPermissions{"vendor:view"}, body.Permissions.Value)
}

func TestIdentityIsActive(t *testing.T) {
	t.Parallel()

	require.True(t, Identity{Status: "Active"}.IsActive())
	require.False(t, Identity{Status: StatusInactive}.IsActive())
	require.False(t, Identity{Status: StatusActive, IsDeleted: true}.IsActive())
}

func TestCanTransitionLoad(t *testing.T) {
	t.Parallel()

	require.True(t, CanTransitionLoad(LoadPending, LoadAssigned))
	require.True(t, CanTransitionLoad(LoadInTransit, LoadDelivered))
	require.True(t, CanTransitionLoad(LoadAssigned, LoadCancelled))
	require.False(t, CanTransitionLoad(LoadDelivered, LoadCancelled))
	require.False(t, CanTransitionLoad(LoadPending, LoadDelivered))
	require.False(t, CanTransitionLoad(LoadCancelled, LoadPending))
}

func TestRealmForRole(t *testing.T) {
	t.Parallel()

	realm, ok := RealmForRole("Vendor")
	require.True(t, ok)
	require.Equal(t, RealmUser, realm)

	_, ok = RealmForRole("viewer")
	require.False(t, ok)
}

func TestDefaultPortalPermissions(t *testing.T) {
	t.Parallel()

	customer := DefaultPortalPermissions(RoleCustomer)
	vendor := DefaultPortalPermissions(RoleVendor)

	require.True(t, customer["loads"]["create"])
	require.False(t, customer["loads"]["edit"])
	require.True(t, vendor["loads"]["edit"])
	require.False(t, vendor["loads"]["create"])
	require.True(t, vendor["profile"]["view"])

	customer["profile"]["view"] = false
	require.True(t, DefaultPortalPermissions(RoleCustomer)["profile"]["view"])
}
