package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/illarion/pbetool/internal/config"
	"github.com/illarion/pbetool/internal/git"
)

// Status shows configuration, store contents and git hygiene. No password
// is required.
func Status(ctx context.Context) {
	cfg := LoadConfig()
	s := OpenSession(cfg, cfg.CryptoFormat())
	defer s.Close()

	info, err := s.Vault.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Format: %s (iterations: %d)\n", cfg.CryptoFormat(), cfg.Iterations)
	switch cfg.Store.Type {
	case config.StoreTypeRedis:
		fmt.Printf("Store: redis %s (prefix %s)\n", cfg.Store.Redis.Addr, cfg.Store.Redis.Prefix)
	default:
		fmt.Printf("Store: %s\n", cfg.Store.Path)
	}
	fmt.Printf("Store ID: %s\n", info.ID)

	fmt.Printf("\nEntries: %d\n", info.Entries)
	formats := make([]string, 0, len(info.Formats))
	for f := range info.Formats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		fmt.Printf("  %s: %d\n", f, info.Formats[f])
	}
	if !info.Modified.IsZero() {
		fmt.Printf("Last modified: %s\n", info.Modified.Local().Format(time.RFC3339))
	}
	if len(info.Legacy) > 0 {
		fmt.Printf("warning: %d entries use deprecated sha256: %s\n", len(info.Legacy), strings.Join(info.Legacy, ", "))
		fmt.Println("   re-seal them with: pbetool seal -format pbkdf2 <name> ...")
	}

	fmt.Printf("\n%s\n", keyringLine(ctx, s))

	storePath := ""
	if cfg.Store.Type == config.StoreTypeBolt {
		storePath = cfg.Store.Path
	}
	gitStatus := git.Check(ctx, ".", storePath, []string{config.DefaultEnvFile, configPath()})
	fmt.Print(git.Format(gitStatus, storePath))
}

func configPath() string {
	if p := config.PathFromEnv(); p != "" {
		return p
	}
	return config.DefaultPath
}
