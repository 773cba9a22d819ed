package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/crypto"
)

// Passwd re-encrypts entries under a new password. With no names every entry
// is re-encrypted.
func Passwd(ctx context.Context, names []string) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	account, _ := s.Account(ctx)

	verify := func(p []byte) error { return s.Vault.VerifyPassword(ctx, p) }
	currentPassword, source, err := s.GetPassword(ctx, "Enter current password: ", verify)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := GetNewPassword("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)

	n, err := s.Vault.ChangePassword(ctx, currentPassword, newPassword, names...)
	if err != nil {
		HandleError(err)
	}

	// Keep a saved keyring password in step, but only when every entry moved
	if account != "" && len(names) == 0 && (source == SourceKeyring || s.Keyring.HasPassword(account)) {
		if err := s.Keyring.SavePassword(account, string(newPassword)); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Compact database after rewriting entries
	if err := s.Vault.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Printf("password changed for %d entries\n", n)
}
