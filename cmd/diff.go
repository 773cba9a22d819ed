package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/crypto"
)

// Diff compares a sealed entry with a local file
func Diff(ctx context.Context, name, file string) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	ws := OpenWorkspace()
	local, err := ws.ReadFile(file)
	ws.Close()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("File not in working directory: %s\n", file)
			return
		}
		HandleError(err)
	}
	defer crypto.ClearBytes(local)

	verify := func(p []byte) error { return s.Vault.VerifyPassword(ctx, p) }
	password := s.GetPasswordOrExit(ctx, "Enter password: ", verify)
	defer crypto.ClearBytes(password)

	diff, err := s.Vault.Diff(ctx, name, password, local)
	if err != nil {
		HandleError(err)
	}

	if diff == "" {
		fmt.Println("No changes detected")
		return
	}
	fmt.Print(diff)
}
