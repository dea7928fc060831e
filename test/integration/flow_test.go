//go:build integration

package integration

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loadView struct {
	ID         string `json:"id"`
	Reference  string `json:"reference"`
	CustomerID string `json:"customer_id"`
	VendorID   string `json:"vendor_id"`
	Status     string `json:"status"`
}

type notificationView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestLoadLifecycleNotifiesPortalUsers(t *testing.T) {
	env := newTestEnv(t)
	sudo := env.newClient(t)
	sudo.mustLogin("sudo", "root", sudoPassword)

	var admin identityView
	expect(t, sudo.json(http.MethodPost, "/api/admin/admins", map[string]any{
		"username": "broker",
		"email":    "broker@example.com",
		"password": "broker-pass",
		"permissions": []string{
			"vendor:create", "vendor:view",
			"customer:create", "customer:view",
			"load:create", "load:view", "load:edit",
			"wallet:create", "wallet:view",
		},
	}), http.StatusCreated, &admin)

	broker := env.newClient(t)
	broker.mustLogin("admin", "broker", "broker-pass")

	var customer identityView
	expect(t, broker.json(http.MethodPost, "/api/admin/customers", map[string]any{
		"username":     "acme",
		"email":        "ship@acme.example",
		"password":     "acme-pass",
		"company_name": "Acme Goods",
	}), http.StatusCreated, &customer)
	assert.Equal(t, "active", customer.Status)

	var vendor identityView
	expect(t, broker.json(http.MethodPost, "/api/admin/vendors", map[string]any{
		"username":     "roadrunner",
		"email":        "dispatch@roadrunner.example",
		"password":     "roadrunner-pass",
		"company_name": "Roadrunner Freight",
	}), http.StatusCreated, &vendor)

	var load loadView
	expect(t, broker.json(http.MethodPost, "/api/admin/loads", map[string]any{
		"customer_id": customer.ID,
		"origin":      "Chicago, IL",
		"destination": "Dallas, TX",
		"pickup_date": "2026-11-02",
		"weight_kg":   12000,
		"rate":        2400,
	}), http.StatusCreated, &load)
	assert.Equal(t, "pending", load.Status)
	assert.NotEmpty(t, load.Reference)

	expect(t, broker.json(http.MethodPut, "/api/admin/loads/"+load.ID+"/assign", map[string]string{"vendor_id": vendor.ID}), http.StatusOK, &load)
	assert.Equal(t, "assigned", load.Status)
	assert.Equal(t, vendor.ID, load.VendorID)

	// assigning twice is an invalid transition
	expect(t, broker.json(http.MethodPut, "/api/admin/loads/"+load.ID+"/assign", map[string]string{"vendor_id": vendor.ID}), http.StatusConflict, nil)

	vendorClient := env.newClient(t)
	vendorClient.mustLogin("vendor", "roadrunner", "roadrunner-pass")

	var portalLoads []loadView
	expect(t, vendorClient.json(http.MethodGet, "/api/portal/loads", nil), http.StatusOK, &portalLoads)
	require.Len(t, portalLoads, 1)

	expect(t, vendorClient.json(http.MethodPut, "/api/portal/loads/"+load.ID+"/status", map[string]string{"status": "in_transit"}), http.StatusOK, &load)
	assert.Equal(t, "in_transit", load.Status)

	// vendors cannot cancel
	expect(t, vendorClient.json(http.MethodPut, "/api/portal/loads/"+load.ID+"/status", map[string]string{"status": "cancelled"}), http.StatusForbidden, nil)

	customerClient := env.newClient(t)
	customerClient.mustLogin("customer", "acme", "acme-pass")

	// customers request loads but never move them
	expect(t, customerClient.json(http.MethodPut, "/api/portal/loads/"+load.ID+"/status", map[string]string{"status": "delivered"}), http.StatusForbidden, nil)

	require.Eventually(t, func() bool {
		var items []notificationView
		expect(t, customerClient.json(http.MethodGet, "/api/me/notifications?unread=true", nil), http.StatusOK, &items)
		return len(items) == 2
	}, 5*time.Second, 50*time.Millisecond)

	var vendorInbox []notificationView
	expect(t, vendorClient.json(http.MethodGet, "/api/me/notifications", nil), http.StatusOK, &vendorInbox)
	require.Len(t, vendorInbox, 1)

	expect(t, vendorClient.json(http.MethodPut, "/api/me/notifications/"+vendorInbox[0].ID+"/read", nil), http.StatusOK, nil)
	var unread []notificationView
	expect(t, vendorClient.json(http.MethodGet, "/api/me/notifications?unread=true", nil), http.StatusOK, &unread)
	assert.Empty(t, unread)

	// another user's notification is invisible
	expect(t, customerClient.json(http.MethodPut, "/api/me/notifications/"+vendorInbox[0].ID+"/read", nil), http.StatusNotFound, nil)
}

func TestWalletBalanceAndPortalScope(t *testing.T) {
	env := newTestEnv(t)
	sudo := env.newClient(t)
	sudo.mustLogin("sudo", "root", sudoPassword)

	var customer identityView
	expect(t, sudo.json(http.MethodPost, "/api/admin/customers", map[string]any{
		"username":     "globex",
		"email":        "ap@globex.example",
		"password":     "globex-pass",
		"company_name": "Globex",
	}), http.StatusCreated, &customer)

	for _, txn := range []map[string]any{
		{"owner_kind": "customer", "owner_id": customer.ID, "direction": "credit", "amount": 500.0, "reference": "INV-1"},
		{"owner_kind": "customer", "owner_id": customer.ID, "direction": "debit", "amount": 120.5, "reference": "INV-2"},
	} {
		expect(t, sudo.json(http.MethodPost, "/api/admin/wallet", txn), http.StatusCreated, nil)
	}

	var balance struct {
		Credits float64 `json:"credits"`
		Debits  float64 `json:"debits"`
		Balance float64 `json:"balance"`
	}
	expect(t, sudo.json(http.MethodGet, "/api/admin/wallet/balance?owner_kind=customer&owner_id="+customer.ID, nil), http.StatusOK, &balance)
	assert.InDelta(t, 500.0, balance.Credits, 0.001)
	assert.InDelta(t, 120.5, balance.Debits, 0.001)
	assert.InDelta(t, 379.5, balance.Balance, 0.001)

	customerClient := env.newClient(t)
	customerClient.mustLogin("customer", "globex", "globex-pass")

	var own struct {
		Balance float64 `json:"balance"`
	}
	expect(t, customerClient.json(http.MethodGet, "/api/portal/wallet/balance", nil), http.StatusOK, &own)
	assert.InDelta(t, 379.5, own.Balance, 0.001)

	// portal users never reach staff routes
	expect(t, customerClient.json(http.MethodGet, "/api/admin/wallet", nil), http.StatusForbidden, nil)
}

func TestCallUploadHonoursAliasedPermission(t *testing.T) {
	env := newTestEnv(t)
	sudo := env.newClient(t)
	sudo.mustLogin("sudo", "root", sudoPassword)

	var root identityView
	expect(t, sudo.json(http.MethodGet, "/api/auth/me", nil), http.StatusOK, &root)

	// "call:create" is an alias of the upload verb
	expect(t, sudo.json(http.MethodPost, "/api/admin/admins", map[string]any{
		"username":    "clerk",
		"email":       "clerk@example.com",
		"password":    "clerk-pass",
		"permissions": []string{"call:create", "call:read"},
	}), http.StatusCreated, nil)

	clerk := env.newClient(t)
	clerk.mustLogin("admin", "clerk", "clerk-pass")

	var call struct {
		ID       string `json:"id"`
		FileName string `json:"file_name"`
		MimeType string `json:"mime_type"`
	}
	resp := clerk.multipart(http.MethodPost, "/api/admin/calls", map[string]string{
		"recipient_id": root.ID,
		"title":        "Rate confirmation",
	}, "file", "rate.pdf", pdfBytes())
	expect(t, resp, http.StatusCreated, &call)
	assert.Equal(t, "rate.pdf", call.FileName)
	assert.Equal(t, "application/pdf", call.MimeType)

	download := sudo.json(http.MethodGet, "/api/admin/calls/"+call.ID+"/download", nil)
	defer download.Body.Close()
	require.Equal(t, http.StatusOK, download.StatusCode)
	assert.Contains(t, download.Header.Get("Content-Disposition"), "rate.pdf")
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes(), body)

	// delete is not granted under any alias
	expect(t, clerk.json(http.MethodDelete, "/api/admin/calls/"+call.ID, nil), http.StatusForbidden, nil)

	resp = clerk.multipart(http.MethodPost, "/api/admin/calls", map[string]string{
		"recipient_id": root.ID,
		"title":        "Script",
	}, "file", "run.sh", []byte("#!/bin/sh\necho hi\n"))
	expect(t, resp, http.StatusUnsupportedMediaType, nil)
}
