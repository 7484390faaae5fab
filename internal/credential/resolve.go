package credential

import (
	"errors"

	"github.com/nhle/track-notifier/internal/model"
)

// Keyring keys for the secrets the service needs.
const (
	KeySlackBotToken      = "slack_bot_token"
	KeySlackSigningSecret = "slack_signing_secret"
	KeySummarizerAPIKey   = "summarizer_api_key"
	KeySMTPPassword       = "smtp_password"
	KeyIMAPPassword       = "imap_password"
)

// Keys lists every secret the keyring may hold, for CLI completion and
// validation.
var Keys = []string{
	KeySlackBotToken,
	KeySlackSigningSecret,
	KeySummarizerAPIKey,
	KeySMTPPassword,
	KeyIMAPPassword,
}

// ResolveSecrets fills secrets that are unset in cfg from the keyring.
// Values from the config file or environment take precedence. Missing
// keyring entries are skipped; it returns the names of the secrets it
// filled.
func ResolveSecrets(cfg *model.AppConfig) ([]string, error) {
	targets := []struct {
		key    string
		secret *model.Secret
	}{
		{KeySlackBotToken, &cfg.Slack.BotToken},
		{KeySlackSigningSecret, &cfg.Slack.SigningSecret},
		{KeySummarizerAPIKey, &cfg.Summarizer.APIKey},
		{KeySMTPPassword, &cfg.SMTP.Password},
		{KeyIMAPPassword, &cfg.IMAP.Password},
	}

	var pending []int
	for i, t := range targets {
		if !t.secret.IsSet() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}

	var filled []string
	for _, i := range pending {
		value, err := lookup(ring, targets[i].key)
		if errors.Is(err, ErrSecretNotStored) {
			continue
		}
		if err != nil {
			return filled, err
		}
		*targets[i].secret = model.Secret(value)
		filled = append(filled, targets[i].key)
	}
	return filled, nil
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
