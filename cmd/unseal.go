package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/crypto"
)

// Unseal decrypts a named entry to stdout or to a file in the working directory
func Unseal(ctx context.Context, name, out string) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	// Fail early with a clear message for unknown names
	if _, err := s.Store.Get(ctx, name); err != nil {
		HandleError(err)
	}

	verify := func(p []byte) error {
		data, err := s.Vault.Unseal(ctx, name, p)
		crypto.ClearBytes(data)
		return err
	}
	password := s.GetPasswordOrExit(ctx, "Enter password: ", verify)
	defer crypto.ClearBytes(password)

	plaintext, err := s.Vault.Unseal(ctx, name, password)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(plaintext)

	if out == "" {
		os.Stdout.Write(plaintext)
		if len(plaintext) > 0 && plaintext[len(plaintext)-1] != '\n' {
			fmt.Println()
		}
		return
	}

	ws := OpenWorkspace()
	defer ws.Close()
	if err := ws.WriteFile(out, plaintext, 0600); err != nil {
		HandleError(err)
	}
	fmt.Printf("Unsealed: %s -> %s\n", name, out)
}
