package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/pbetool/cmd"
	"github.com/illarion/pbetool/internal/config"
	"github.com/illarion/pbetool/internal/crypto"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	if cmd.IsPBEMode(os.Args[1]) {
		cfg := cmd.LoadConfig()
		code := cmd.RunPBE(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	switch os.Args[1] {
	case "seal":
		runSeal(ctx, os.Args[2:])
	case "unseal":
		runUnseal(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "serve":
		runServe(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		if len(os.Args) < 4 {
			printUsage()
			return
		}
		// A broken config must not turn a usage mistake into a crash
		cfg, _ := config.Load("")
		code := cmd.InvalidCommand(cfg, os.Stdout)
		stop()
		os.Exit(code)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func parseFormat(name string) crypto.Format {
	if name == "" {
		return cmd.LoadConfig().CryptoFormat()
	}
	format, err := crypto.ParseFormat(name)
	if err != nil {
		cmd.HandleError(err)
	}
	return format
}

func runSeal(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	format := fs.String("format", "", "Envelope format (default from config)")
	file := fs.String("f", "", "Read text from file")
	parseFlags(fs, args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbetool seal [-format F] [-f file] <name> [text]")
		os.Exit(1)
	}

	cmd.Seal(ctx, parseFormat(*format), fs.Arg(0), fs.Arg(1), *file)
}

func runUnseal(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unseal", flag.ExitOnError)
	out := fs.String("o", "", "Write plaintext to file")
	parseFlags(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbetool unseal [-o file] <name>")
		os.Exit(1)
	}

	cmd.Unseal(ctx, fs.Arg(0), *out)
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.List(ctx)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Remove(ctx, fs.Args())
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: pbetool diff <name> <file>")
		os.Exit(1)
	}

	cmd.Diff(ctx, fs.Arg(0), fs.Arg(1))
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Passwd(ctx, fs.Args())
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbetool keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "delete":
		cmd.KeyringDelete(ctx)
	case "status":
		cmd.KeyringStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: pbetool keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Compact(ctx)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Status(ctx)
}

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "Listen host (default from config)")
	port := fs.Int("port", 0, "Listen port (default from config)")
	parseFlags(fs, args)

	cmd.Serve(ctx, *host, *port)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbetool completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("pbetool - password-based text encryption")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pbetool <enc|dec> [flags] <password> <text>")
	fmt.Println("  pbetool <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  enc         Encrypt a text, print the Base64 envelope")
	fmt.Println("  dec         Decrypt a Base64 envelope, print the text")
	fmt.Println("  seal        Encrypt a text and store it under a name")
	fmt.Println("  unseal      Decrypt a stored entry")
	fmt.Println("  ls          List stored entries")
	fmt.Println("  rm          Remove stored entries")
	fmt.Println("  diff        Compare a stored entry with a local file")
	fmt.Println("  passwd      Re-encrypt entries under a new password")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  compact     Compact the store file to reclaim disk space")
	fmt.Println("  status      Show store status")
	fmt.Println("  serve       Run the HTTP encryption service")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pbetool enc \"mypassword\" \"Hello World\"")
	fmt.Printf("  pbetool dec -format sha256 \"mypassword\" \"%s\"\n", cmd.SampleEnvelope)
	fmt.Println("  pbetool seal api-token \"s3cr3t\"")
	fmt.Println()
	fmt.Println("Use 'pbetool help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "enc", "dec":
		cmd.PrintPBEUsage(os.Stdout)
	case "seal":
		fmt.Println("pbetool seal [-format F] [-f file] <name> [text]")
		fmt.Println()
		fmt.Println("Encrypts a text and stores the envelope under <name>.")
		fmt.Println("The text comes from the argument, from -f, or from piped stdin.")
		fmt.Println("All entries in a store share one password.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -format F   pbkdf2 (default), pbkdf2v or sha256 (deprecated)")
		fmt.Println("  -f FILE     Read the text from FILE in the working directory")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  pbetool seal db-url \"postgres://...\"")
		fmt.Println("  pbetool seal -f notes.txt notes")
		fmt.Println("  cat key.pem | pbetool seal tls-key")
	case "unseal":
		fmt.Println("pbetool unseal [-o file] <name>")
		fmt.Println()
		fmt.Println("Decrypts a stored entry using the format it was sealed with.")
		fmt.Println("Prints to stdout unless -o names a file in the working directory.")
	case "ls":
		fmt.Println("pbetool ls")
		fmt.Println()
		fmt.Println("Lists stored entries with format and modification time.")
		fmt.Println("No password required.")
	case "rm":
		fmt.Println("pbetool rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes entries from the store and compacts it.")
	case "diff":
		fmt.Println("pbetool diff <name> <file>")
		fmt.Println()
		fmt.Println("Shows a unified diff between a stored entry and a local file.")
	case "passwd":
		fmt.Println("pbetool passwd [name...]")
		fmt.Println()
		fmt.Println("Re-encrypts entries under a new password, keeping their formats.")
		fmt.Println("With no names every entry is re-encrypted and the keyring is updated.")
		fmt.Println("PBE_NEW_PASSWORD supplies the new password without prompting.")
	case "keyring":
		fmt.Println("pbetool keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the store password in the OS keyring.")
		fmt.Println()
		fmt.Println("Subcommands:")
		fmt.Println("  save    Save password to keyring (prompts for password)")
		fmt.Println("  delete  Remove password from keyring")
		fmt.Println("  status  Check if password is stored")
		fmt.Println()
		fmt.Println("Password lookup order: PBE_PASSWORD, keyring, prompt.")
	case "compact":
		fmt.Println("pbetool compact")
		fmt.Println()
		fmt.Println("Compacts the bbolt store file to reclaim unused disk space.")
	case "status":
		fmt.Println("pbetool status")
		fmt.Println()
		fmt.Println("Shows configuration, entries per format, deprecated entries,")
		fmt.Println("keyring state and git hygiene of pbetool files.")
	case "serve":
		fmt.Println("pbetool serve [-host H] [-port P]")
		fmt.Println()
		fmt.Println("Runs the HTTP encryption service.")
		fmt.Println()
		fmt.Println("Endpoints:")
		fmt.Println("  GET  /health")
		fmt.Println("  POST /api/encrypt  {\"password\",\"text\",\"format\"}")
		fmt.Println("  POST /api/decrypt  {\"password\",\"data\",\"format\"}")
		fmt.Println("  GET  /metrics")
	case "completion":
		fmt.Println("pbetool completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  bash: eval \"$(pbetool completion bash)\"")
		fmt.Println("  zsh:  eval \"$(pbetool completion zsh)\"")
		fmt.Println("  fish: pbetool completion fish | source")
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}
