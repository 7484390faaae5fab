// Package credential keeps the notifier's secrets in the OS keyring: the
// Slack bot token and signing secret, the summarizer API key and the SMTP
// and IMAP passwords. The config file and the environment take precedence;
// the keyring fills whatever they leave unset.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "track-notifier"

	// passwordEnv overrides the passphrase of the encrypted file backend,
	// used on hosts without a desktop keyring.
	passwordEnv = "TRACK_NOTIFIER_KEYRING_PASSWORD"
)

var (
	// ErrUnknownSecret is returned for keys outside Keys.
	ErrUnknownSecret = errors.New("unknown secret")
	// ErrSecretNotStored is returned when the keyring has no entry.
	ErrSecretNotStored = errors.New("secret not stored in keyring")
)

var labels = map[string]string{
	KeySlackBotToken:      "Slack bot token",
	KeySlackSigningSecret: "Slack signing secret",
	KeySummarizerAPIKey:   "Summarizer API key",
	KeySMTPPassword:       "SMTP password",
	KeyIMAPPassword:       "IMAP password",
}

// Label returns the human readable name of a secret key.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

func filePassword(prompt string) (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return keyring.FixedStringPrompt(serviceName + "-file-key")(prompt)
}

// openKeyring opens the service keyring. Tests replace it.
var openKeyring = func() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
		PassPrefix:               serviceName,
		FileDir:                  "~/.config/track-notifier/secrets",
		FilePasswordFunc:         filePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s keyring: %w", serviceName, err)
	}
	return ring, nil
}

func checkKey(key string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownSecret, key, strings.Join(Keys, ", "))
	}
	return nil
}

func lookup(ring keyring.Keyring, key string) (string, error) {
	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%s: %w", Label(key), ErrSecretNotStored)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", Label(key), err)
	}
	return string(item.Data), nil
}

// Get returns the stored value of a known secret.
func Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	return lookup(ring, key)
}

// Set stores a known secret. Surrounding whitespace is dropped and a blank
// value is rejected.
func Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("storing %s: empty value", Label(key))
	}

	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       serviceName + " " + Label(key),
		Description: "track-notifier secret " + key,
	})
	if err != nil {
		return fmt.Errorf("storing %s: %w", Label(key), err)
	}
	return nil
}

// Delete removes a known secret from the keyring.
func Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", Label(key), ErrSecretNotStored)
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", Label(key), err)
	}
	return nil
}
