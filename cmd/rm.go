package cmd

import (
	"context"
	"fmt"
	"os"
)

// Remove deletes entries from the store
func Remove(ctx context.Context, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one name\n")
		fmt.Fprintf(os.Stderr, "Usage: pbetool rm <name> [name...]\n")
		os.Exit(1)
	}

	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	if err := s.Vault.Remove(ctx, names...); err != nil {
		HandleError(err)
	}

	for _, name := range names {
		fmt.Printf("Removed: %s\n", name)
	}
}
