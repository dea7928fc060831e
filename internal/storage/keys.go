package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned for storage keys the services never produce.
var ErrInvalidKey = errors.New("invalid storage key")

// Upload collections. Every key is "<collection>/<record id>/...", so a key
// always names something inside one record's directory.
const (
	CollectionVendors   = "vendors"
	CollectionCustomers = "customers"
	CollectionCalls     = "calls"
	CollectionWallet    = "wallet"
)

var collections = map[string]bool{
	CollectionVendors:   true,
	CollectionCustomers: true,
	CollectionCalls:     true,
	CollectionWallet:    true,
}

// keyResolver maps server-generated keys such as "vendors/<id>/photo/<file>"
// onto the upload root.
type keyResolver struct {
	root string
}

func newKeyResolver(root string) (*keyResolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	return &keyResolver{root: abs}, nil
}

func (k *keyResolver) resolve(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(k.root, filepath.FromSlash(key)), nil
}

// checkKey accepts only clean, relative, slash-separated keys with a known
// collection and a record id.
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.ContainsRune(key, '\\') {
		return fmt.Errorf("%w: %q is not relative", ErrInvalidKey, key)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidKey, key)
		}
	}

	segments := strings.Split(key, "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q is not clean", ErrInvalidKey, key)
		}
	}
	if !collections[segments[0]] {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidKey, segments[0])
	}
	if len(segments) < 2 {
		return fmt.Errorf("%w: %q names a whole collection", ErrInvalidKey, key)
	}
	return nil
}
