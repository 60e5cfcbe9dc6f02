package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring coordinates for the stored upstream API key.
const (
	keyringService = "anthropic-proxy"
	keyringUser    = "upstream_api_key"
)

// LookupKeyringAPIKey reads the upstream API key from the OS keyring.
// A missing entry is not an error; an unavailable keyring backend is.
func LookupKeyringAPIKey() (string, error) {
	key, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	return key, nil
}

// StoreKeyringAPIKey writes the upstream API key to the OS keyring.
func StoreKeyringAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// ClearKeyringAPIKey removes the stored upstream API key. Clearing an
// absent entry succeeds.
func ClearKeyringAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear keyring: %w", err)
	}
	return nil
}
