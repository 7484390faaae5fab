package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/track-notifier/internal/model"
)

func useArrayKeyring(t *testing.T, items ...keyring.Item) *keyring.ArrayKeyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(items)
	orig := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyring = orig })
	return ring
}

func TestSetGetDelete(t *testing.T) {
	useArrayKeyring(t)

	require.NoError(t, Set(KeySlackBotToken, "xoxb-1"))
	v, err := Get(KeySlackBotToken)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-1", v)

	require.NoError(t, Delete(KeySlackBotToken))
	_, err = Get(KeySlackBotToken)
	assert.ErrorIs(t, err, ErrSecretNotStored)
}

func TestSetLabelsAndTrims(t *testing.T) {
	ring := useArrayKeyring(t)

	require.NoError(t, Set(KeySMTPPassword, "  hunter2 \n"))
	item, err := ring.Get(KeySMTPPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(item.Data))
	assert.Equal(t, "track-notifier SMTP password", item.Label)

	err = Set(KeySMTPPassword, "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP password")
}

func TestUnknownSecretRejected(t *testing.T) {
	ring := useArrayKeyring(t)

	err := Set("jira_token", "x")
	assert.ErrorIs(t, err, ErrUnknownSecret)
	_, err = Get("jira_token")
	assert.ErrorIs(t, err, ErrUnknownSecret)
	assert.ErrorIs(t, Delete("jira_token"), ErrUnknownSecret)

	keys, err := ring.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Slack signing secret", Label(KeySlackSigningSecret))
	assert.Equal(t, "other", Label("other"))
}

func TestFilePasswordFromEnv(t *testing.T) {
	t.Setenv(passwordEnv, "from-env")
	p, err := filePassword("passphrase")
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)

	t.Setenv(passwordEnv, "")
	p, err = filePassword("passphrase")
	require.NoError(t, err)
	assert.Equal(t, "track-notifier-file-key", p)
}

func TestResolveSecrets(t *testing.T) {
	useArrayKeyring(t,
		keyring.Item{Key: KeySlackBotToken, Data: []byte("from-keyring")},
		keyring.Item{Key: KeySlackSigningSecret, Data: []byte("signing")},
	)

	cfg := model.DefaultAppConfig()
	cfg.Slack.BotToken = "from-env"

	filled, err := ResolveSecrets(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{KeySlackSigningSecret}, filled)
	assert.Equal(t, "from-env", cfg.Slack.BotToken.Value())
	assert.Equal(t, "signing", cfg.Slack.SigningSecret.Value())
	assert.False(t, cfg.SMTP.Password.IsSet())
}

func TestIsKnownKey(t *testing.T) {
	assert.True(t, IsKnownKey(KeyIMAPPassword))
	assert.False(t, IsKnownKey("jira_token"))
}
