package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/pbetool/internal/config"
	"github.com/illarion/pbetool/internal/core"
	"github.com/illarion/pbetool/internal/crypto"
	"github.com/illarion/pbetool/internal/keyring"
	"github.com/illarion/pbetool/internal/security"
)

// SampleEnvelope is a legacy sha256 envelope of "Hello World" under
// "mypassword", printed in the usage text.
const SampleEnvelope = "FDNGl0K7cGFQQF6AmN/67PWq3Iouxd1bKPrLcmNFyTE="

// Exit codes
const (
	ExitOK      = 0
	ExitError   = 1
	ExitInvalid = 2 // unknown command in strict mode
)

// PasswordFromSources is the password argument that selects
// PBE_PASSWORD, the keyring or a prompt.
const PasswordFromSources = "-"

// IsPBEMode reports whether mode names the enc or dec command
func IsPBEMode(mode string) bool {
	switch strings.ToLower(mode) {
	case "enc", "dec":
		return true
	}
	return false
}

// PrintPBEUsage prints the enc/dec usage with the sample envelope
func PrintPBEUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pbetool <enc|dec> [flags] <password> <text>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -format F       Envelope format: pbkdf2 (default), pbkdf2v, sha256")
	fmt.Fprintln(w, "  -iterations N   PBKDF2 iteration count (default 1000)")
	fmt.Fprintln(w, "  -f FILE         Read the text from FILE instead of the argument")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A password of '-' reads PBE_PASSWORD, then the keyring, then prompts.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintf(w, "  pbetool dec -format sha256 \"mypassword\" \"%s\"\n", SampleEnvelope)
}

// InvalidCommand reports an unknown mode. It exits 0 unless strict mode is on.
func InvalidCommand(cfg *config.Config, w io.Writer) int {
	fmt.Fprintln(w, "Invalid command. Use 'enc' or 'dec'.")
	if cfg != nil && cfg.CLI.Strict {
		return ExitInvalid
	}
	return ExitOK
}

// RunPBE runs "enc" or "dec". args starts with the mode.
func RunPBE(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) < 3 {
		PrintPBEUsage(stdout)
		return ExitOK
	}

	mode := strings.ToLower(args[0])
	if !IsPBEMode(mode) {
		return InvalidCommand(cfg, stdout)
	}

	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.Format, "Envelope format")
	iterations := fs.Int("iterations", cfg.Iterations, "PBKDF2 iterations")
	file := fs.String("f", "", "Read text from file")
	if err := fs.Parse(args[1:]); err != nil {
		return ExitError
	}

	positional := fs.Args()
	needed := 2
	if *file != "" {
		needed = 1
	}
	if len(positional) < needed {
		PrintPBEUsage(stdout)
		return ExitOK
	}

	fail := func(err error) int {
		fmt.Fprintf(stderr, "Error: %s\n", errorMessage(err))
		return ExitError
	}

	f, err := crypto.ParseFormat(*format)
	if err != nil {
		return fail(err)
	}
	codec, err := crypto.New(f, crypto.WithIterations(*iterations))
	if err != nil {
		return fail(err)
	}

	password, err := resolvePassword(ctx, cfg, positional[0])
	if err != nil {
		return fail(err)
	}
	defer crypto.ClearBytes(password)

	var text []byte
	if *file != "" {
		ws, err := security.New(".")
		if err != nil {
			return fail(err)
		}
		text, err = ws.ReadFile(*file)
		ws.Close()
		if err != nil {
			return fail(err)
		}
	} else {
		text = []byte(positional[1])
	}

	if mode == "enc" {
		encoded, err := codec.Encrypt(password, text)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(stdout, "Encrypted: %s\n", encoded)
		return ExitOK
	}

	plaintext, err := codec.DecryptString(string(password), strings.TrimSpace(string(text)))
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Decrypted: %s\n", plaintext)
	return ExitOK
}

// resolvePassword returns arg unless it is "-", in which case the password
// comes from PBE_PASSWORD, the keyring or a prompt.
func resolvePassword(ctx context.Context, cfg *config.Config, arg string) ([]byte, error) {
	if arg != PasswordFromSources {
		return []byte(arg), nil
	}

	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}

	if saved, err := keyringPassword(ctx, cfg); err == nil {
		return []byte(saved), nil
	}

	return promptPassword("Enter password: ")
}

func keyringPassword(ctx context.Context, cfg *config.Config) (string, error) {
	account := cfg.Keyring.Account
	if account == "" {
		// Do not create a store file just to look up its ID
		if cfg.Store.Type == config.StoreTypeBolt {
			if _, err := os.Stat(cfg.Store.Path); err != nil {
				return "", err
			}
		}
		store, err := OpenStore(cfg)
		if err != nil {
			return "", err
		}
		defer store.Close()
		account, err = keyringAccount(ctx, cfg, store)
		if err != nil {
			return "", err
		}
	}

	saved, err := keyring.New(cfg.Keyring.Service).GetPassword(account)
	if err != nil {
		return "", err
	}
	if saved == "" {
		return "", errors.New("empty keyring password")
	}
	return saved, nil
}
