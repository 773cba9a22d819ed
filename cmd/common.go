package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/config"
	"github.com/illarion/pbetool/internal/core"
	"github.com/illarion/pbetool/internal/crypto"
	"github.com/illarion/pbetool/internal/keyring"
	"github.com/illarion/pbetool/internal/security"
	"github.com/illarion/pbetool/internal/storage"
	"github.com/redis/go-redis/v9"
)

// NewPasswordEnv supplies the new password to passwd without prompting.
const NewPasswordEnv = "PBE_NEW_PASSWORD"

// PasswordSource records where a password came from
type PasswordSource int

const (
	SourcePrompt PasswordSource = iota
	SourceEnv
	SourceKeyring
)

// Session bundles configuration, store and vault for one command
type Session struct {
	Config  *config.Config
	Store   storage.Store
	Vault   *core.Vault
	Keyring *keyring.Keyring
}

// LoadConfig loads configuration or exits
func LoadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		HandleError(err)
	}
	return cfg
}

// OpenStore opens the configured envelope store
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Type {
	case config.StoreTypeRedis:
		store, err := storage.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Store.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := storage.OpenBolt(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// OpenSession opens the store and a vault sealing in the given format, or exits
func OpenSession(cfg *config.Config, format crypto.Format) *Session {
	store, err := OpenStore(cfg)
	if err != nil {
		HandleError(err)
	}

	vault, err := core.NewVault(store, format, cfg.Iterations)
	if err != nil {
		store.Close()
		HandleError(err)
	}

	return &Session{
		Config:  cfg,
		Store:   store,
		Vault:   vault,
		Keyring: keyring.New(cfg.Keyring.Service),
	}
}

func (s *Session) Close() {
	s.Store.Close()
}

// Account returns the keyring account: the configured one, else the store ID
func (s *Session) Account(ctx context.Context) (string, error) {
	return keyringAccount(ctx, s.Config, s.Store)
}

func keyringAccount(ctx context.Context, cfg *config.Config, store storage.Store) (string, error) {
	if cfg.Keyring.Account != "" {
		return cfg.Keyring.Account, nil
	}
	if store == nil {
		return "", fmt.Errorf("no keyring account configured")
	}
	return store.ID(ctx)
}

// GetPassword resolves a password from PBE_PASSWORD, then the keyring, then
// the terminal. A keyring password that verify rejects with
// core.ErrWrongPassword is treated as stale and skipped; any other verify
// error is returned. The caller is responsible for calling crypto.ClearBytes on the
// returned password.
func (s *Session) GetPassword(ctx context.Context, prompt string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		if verify != nil {
			if err := verify(password); err != nil {
				crypto.ClearBytes(password)
				return nil, SourceEnv, err
			}
		}
		return password, SourceEnv, nil
	}

	if account, err := s.Account(ctx); err == nil {
		if saved, err := s.Keyring.GetPassword(account); err == nil {
			password := []byte(saved)
			if verify == nil {
				return password, SourceKeyring, nil
			}
			err := verify(password)
			if err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			// Only a rejected password is stale; other failures would
			// repeat with any password
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, SourceKeyring, err
			}
			fmt.Fprintln(os.Stderr, "warning: keyring password is stale, prompting")
		}
	}

	password, err := promptPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if verify != nil {
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			return nil, SourcePrompt, err
		}
	}
	return password, SourcePrompt, nil
}

// GetPasswordOrExit is like GetPassword but exits on error
func (s *Session) GetPasswordOrExit(ctx context.Context, prompt string, verify func([]byte) error) []byte {
	password, _, err := s.GetPassword(ctx, prompt, verify)
	if err != nil {
		HandleError(err)
	}
	return password
}

// GetNewPassword reads a new password from PBE_NEW_PASSWORD or prompts twice
func GetNewPassword(prompt string) ([]byte, error) {
	if v := os.Getenv(NewPasswordEnv); v != "" {
		return []byte(v), nil
	}
	if !core.IsTerminal() {
		return nil, fmt.Errorf("%w: set %s", core.ErrPasswordRequired, NewPasswordEnv)
	}
	return core.ReadPasswordConfirm(prompt)
}

func promptPassword(prompt string) ([]byte, error) {
	if !core.IsTerminal() {
		return nil, fmt.Errorf("%w: set %s", core.ErrPasswordRequired, core.PasswordEnv)
	}
	return core.ReadPassword(prompt)
}

// OpenWorkspace opens the current directory for confined file access, or exits
func OpenWorkspace() *security.Workspace {
	ws, err := security.New(".")
	if err != nil {
		HandleError(err)
	}
	return ws
}

// errorMessage renders an error for the user, adding a hint for known cases
func errorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrWrongPassword):
		return "wrong password or corrupted data"
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("%s\nUse 'pbetool ls' to see stored entries", err)
	case errors.Is(err, core.ErrNoEntries):
		return fmt.Sprintf("%s\nUse 'pbetool seal' to add entries", err)
	case errors.Is(err, crypto.ErrUnsupportedFormat):
		return fmt.Sprintf("%s (supported: pbkdf2, pbkdf2v, sha256)", err)
	default:
		return err.Error()
	}
}

// HandleError prints the error to stderr and exits with status 1
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
	os.Exit(1)
}

// formatSize formats a size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
