package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/illarion/pbetool/internal/config"
	"github.com/illarion/pbetool/internal/core"
	"github.com/illarion/pbetool/internal/crypto"
	"github.com/illarion/pbetool/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	gokeyring.MockInit()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.pbetool")

	s := OpenSession(cfg, crypto.DefaultFormat)
	t.Cleanup(s.Close)
	return s
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.pbetool")
	bolt, err := OpenStore(cfg)
	require.NoError(t, err)
	defer bolt.Close()
	assert.IsType(t, &storage.BoltStore{}, bolt)

	mr := miniredis.RunT(t)
	cfg.Store.Type = config.StoreTypeRedis
	cfg.Store.Redis.Addr = mr.Addr()
	rs, err := OpenStore(cfg)
	require.NoError(t, err)
	defer rs.Close()
	assert.IsType(t, &storage.RedisStore{}, rs)

	require.NoError(t, rs.Put(ctx, &storage.Entry{Name: "k", Envelope: "e"}))
	assert.True(t, mr.Exists(config.DefaultRedisKey+":entries"))
}

func TestSessionAccount(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()

	id, err := s.Store.ID(ctx)
	require.NoError(t, err)
	account, err := s.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, account)

	s.Config.Keyring.Account = "shared"
	account, err = s.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared", account)
}

func TestGetPasswordFromEnv(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()

	_, err := s.Vault.Seal(ctx, "k", []byte("right"), []byte("text"))
	require.NoError(t, err)
	verify := func(p []byte) error { return s.Vault.VerifyPassword(ctx, p) }

	t.Setenv(core.PasswordEnv, "right")
	password, source, err := s.GetPassword(ctx, "", verify)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "right", string(password))

	// Padding can validate by chance, so only the error kind is checked
	t.Setenv(core.PasswordEnv, "wrong")
	if _, _, err := s.GetPassword(ctx, "", verify); err != nil {
		assert.ErrorIs(t, err, core.ErrWrongPassword)
	}
}

func TestGetPasswordFromKeyring(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	t.Setenv(core.PasswordEnv, "")

	account, err := s.Account(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Keyring.SavePassword(account, "saved"))

	password, source, err := s.GetPassword(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceKeyring, source)
	assert.Equal(t, "saved", string(password))
}

func TestGetPasswordKeyringVerifyErrors(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	t.Setenv(core.PasswordEnv, "")

	account, err := s.Account(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Keyring.SavePassword(account, "saved"))

	// A corrupt entry is not a stale password
	corrupt := func([]byte) error { return fmt.Errorf("cannot decrypt k: %w", crypto.ErrFormat) }
	_, source, err := s.GetPassword(ctx, "", corrupt)
	assert.ErrorIs(t, err, crypto.ErrFormat)
	assert.Equal(t, SourceKeyring, source)

	if core.IsTerminal() {
		t.Skip("stdin is a terminal")
	}
	stale := func([]byte) error { return fmt.Errorf("%w: cannot decrypt k", core.ErrWrongPassword) }
	_, source, err = s.GetPassword(ctx, "", stale)
	assert.ErrorIs(t, err, core.ErrPasswordRequired)
	assert.Equal(t, SourcePrompt, source)
}

func TestKeyringLine(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	t.Setenv(core.PasswordEnv, "")

	assert.Equal(t, "Password: not stored", keyringLine(ctx, s))

	account, err := s.Account(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Keyring.SavePassword(account, "saved"))
	assert.Equal(t, "Password: stored in keyring "+config.DefaultService+"/"+account, keyringLine(ctx, s))

	t.Setenv(core.PasswordEnv, "override")
	assert.Contains(t, keyringLine(ctx, s), core.PasswordEnv+" overrides it")
}

func TestErrorMessage(t *testing.T) {
	wrapped := fmt.Errorf("%w: cannot decrypt k: %w", core.ErrWrongPassword, crypto.ErrCrypto)
	assert.Equal(t, "wrong password or corrupted data", errorMessage(wrapped))

	notFound := fmt.Errorf("%w: k", storage.ErrNotFound)
	assert.Contains(t, errorMessage(notFound), "pbetool ls")

	assert.Equal(t, "boom", errorMessage(fmt.Errorf("boom")))
}
