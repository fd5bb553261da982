package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service name tokens are stored under.
const KeyringService = "vacancycache-workable"

// ResolveAccessToken returns configured if set, otherwise the token stored in
// the OS keyring for account. A missing keyring entry yields "" and no error,
// so the caller falls back to inert mode.
func ResolveAccessToken(configured, account string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", nil
	}

	token, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading access token from keyring: %w", err)
	}
	return token, nil
}

// SetAccessToken stores token in the OS keyring under account.
func SetAccessToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if token == "" {
		return errors.New("access token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

// DeleteAccessToken removes the stored token for account.
func DeleteAccessToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
