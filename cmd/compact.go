package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbetool/internal/config"
)

// Compact compacts the bbolt store to reclaim unused space
func Compact(ctx context.Context) {
	cfg := LoadConfig()
	if cfg.Store.Type != config.StoreTypeBolt {
		fmt.Printf("Store type %s does not need compaction\n", cfg.Store.Type)
		return
	}

	info, err := os.Stat(cfg.Store.Path)
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	s := OpenSession(cfg, cfg.CryptoFormat())
	if err := s.Vault.Compact(); err != nil {
		s.Close()
		HandleError(err)
	}
	s.Close()

	info, err = os.Stat(cfg.Store.Path)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}
