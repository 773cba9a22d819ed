// Package keyring caches store passwords in the OS keyring.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no password is saved for an account.
var ErrNotFound = keyring.ErrNotFound

// Keyring stores one password per account under a service name
type Keyring struct {
	service string
}

// New returns a Keyring for the given service name
func New(service string) *Keyring {
	return &Keyring{service: service}
}

// Service returns the service name passwords are stored under
func (k *Keyring) Service() string {
	return k.service
}

// SavePassword stores a password in the OS keyring
func (k *Keyring) SavePassword(account string, password string) error {
	return keyring.Set(k.service, account, password)
}

// GetPassword retrieves a password from the OS keyring
func (k *Keyring) GetPassword(account string) (string, error) {
	password, err := keyring.Get(k.service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return password, err
}

// DeletePassword removes a password from the OS keyring
func (k *Keyring) DeletePassword(account string) error {
	return keyring.Delete(k.service, account)
}

// HasPassword checks if a password is stored in the keyring
func (k *Keyring) HasPassword(account string) bool {
	_, err := keyring.Get(k.service, account)
	return err == nil
}
