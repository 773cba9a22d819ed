package cmd

import (
	"context"
	"fmt"
	"time"
)

// List shows entries in the store. No password is required.
func List(ctx context.Context) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	entries, err := s.Vault.List(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No entries in store")
		return
	}

	fmt.Println("Entries:")
	for _, e := range entries {
		fmt.Printf("  %s (%s, %s, modified %s)\n",
			e.Name, e.Format, formatSize(int64(len(e.Envelope))), e.Modified.Local().Format(time.RFC3339))
	}
}
