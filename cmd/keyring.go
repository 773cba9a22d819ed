package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/core"
	"github.com/illarion/pbetool/internal/crypto"
)

// KeyringSave saves the password to the OS keyring
func KeyringSave(ctx context.Context) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	password, err := promptPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := s.Vault.VerifyPassword(ctx, password); err != nil {
		HandleError(err)
	}

	account, err := s.Account(ctx)
	if err != nil {
		HandleError(err)
	}

	if err := s.Keyring.SavePassword(account, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password saved to keyring (service %s, account %s)\n", s.Keyring.Service(), account)
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete(ctx context.Context) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	account, err := s.Account(ctx)
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := s.Keyring.DeletePassword(account); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus(ctx context.Context) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	fmt.Println(keyringLine(ctx, s))
}

func keyringLine(ctx context.Context, s *Session) string {
	account, err := s.Account(ctx)
	if err != nil || !s.Keyring.HasPassword(account) {
		return "Password: not stored"
	}
	if core.GetPasswordFromEnv() != nil {
		return fmt.Sprintf("Password: stored in keyring %s/%s (%s overrides it)", s.Keyring.Service(), account, core.PasswordEnv)
	}
	return fmt.Sprintf("Password: stored in keyring %s/%s", s.Keyring.Service(), account)
}
