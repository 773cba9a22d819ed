package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pbetool/internal/core"
	"github.com/illarion/pbetool/internal/crypto"
	"github.com/illarion/pbetool/internal/security"
)

// Seal encrypts a text and stores the envelope under name.
// The text comes from the argument, from file, or from piped stdin.
func Seal(ctx context.Context, format crypto.Format, name, text, file string) {
	cfg := LoadConfig()

	var plaintext []byte
	switch {
	case file != "":
		ws := OpenWorkspace()
		data, err := ws.ReadFile(file)
		ws.Close()
		if err != nil {
			HandleError(err)
		}
		plaintext = data
	case text != "":
		plaintext = []byte(text)
	case !core.IsTerminal():
		data, err := io.ReadAll(io.LimitReader(os.Stdin, security.MaxFileSize+1))
		if err != nil {
			HandleError(err)
		}
		if len(data) > security.MaxFileSize {
			HandleError(security.ErrTooLarge)
		}
		plaintext = data
	default:
		fmt.Fprintln(os.Stderr, "Error: seal requires a text, -f <file> or piped input")
		fmt.Fprintln(os.Stderr, "Usage: pbetool seal [-format F] [-f file] <name> [text]")
		os.Exit(1)
	}
	defer crypto.ClearBytes(plaintext)

	s := OpenSession(cfg, format)
	defer s.Close()

	entries, err := s.Vault.List(ctx)
	if err != nil {
		HandleError(err)
	}

	var password []byte
	if len(entries) == 0 && core.GetPasswordFromEnv() == nil && core.IsTerminal() {
		// First entry: the password is new, so confirm it
		password, err = core.ReadPasswordConfirm("Enter password: ")
	} else {
		verify := func(p []byte) error { return s.Vault.VerifyPassword(ctx, p) }
		password, _, err = s.GetPassword(ctx, "Enter password: ", verify)
	}
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	entry, err := s.Vault.Seal(ctx, name, password, plaintext)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Sealed: %s (%s)\n", entry.Name, entry.Format)
	if format == crypto.FormatSHA256 {
		fmt.Fprintln(os.Stderr, "warning: sha256 format is deprecated, prefer pbkdf2")
	}
}
