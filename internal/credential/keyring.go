package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "jissue"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("no password stored")

// Store keeps service passwords in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the OS keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/jissue/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("jissue-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// Key names the keyring entry of an account on a host.
func Key(host, username string) string {
	return strings.ToLower(username) + "@" + strings.ToLower(strings.TrimSpace(host))
}

// Password retrieves the password of username on host.
func (s *Store) Password(host, username string) (string, error) {
	key := Key(host, username)
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w for %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the password of username on host.
func (s *Store) SetPassword(host, username, password string) error {
	key := Key(host, username)
	err := s.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(password),
		Label:       "jissue " + key,
		Description: "jissue REST credentials",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// DeletePassword removes the password of username on host.
func (s *Store) DeletePassword(host, username string) error {
	key := Key(host, username)
	if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
