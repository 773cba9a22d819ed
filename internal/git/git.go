package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Status contains git status information for pbetool files
type Status struct {
	IsRepo           bool
	StoreTracked     bool
	TrackedSecrets   []string // password-bearing files tracked by git (bad)
	UnignoredSecrets []string // password-bearing files not in .gitignore (warning)
	IgnoredSecrets   []string // password-bearing files in .gitignore (good)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(ctx context.Context, workDir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check inspects the store file and files that may contain a password
func Check(ctx context.Context, workDir, storePath string, secretFiles []string) *Status {
	status := &Status{}
	if !IsGitRepo(ctx, workDir) {
		return status
	}
	status.IsRepo = true

	if storePath != "" {
		status.StoreTracked = IsTracked(ctx, workDir, storePath)
	}

	for _, file := range secretFiles {
		switch {
		case IsTracked(ctx, workDir, file):
			status.TrackedSecrets = append(status.TrackedSecrets, file)
		case IsIgnored(ctx, workDir, file):
			status.IgnoredSecrets = append(status.IgnoredSecrets, file)
		default:
			status.UnignoredSecrets = append(status.UnignoredSecrets, file)
		}
	}

	return status
}

// Format formats git status for display
func Format(status *Status, storePath string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if storePath != "" {
		if status.StoreTracked {
			fmt.Fprintf(&result, "   ok: %s is tracked by git\n", storePath)
		} else {
			fmt.Fprintf(&result, "   info: %s not tracked (envelopes are safe to commit)\n", storePath)
		}
	}

	for _, file := range status.TrackedSecrets {
		fmt.Fprintf(&result, "   error: %s is tracked by git (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range status.UnignoredSecrets {
		fmt.Fprintf(&result, "   warning: %s not in .gitignore\n", file)
	}
	if len(status.TrackedSecrets) == 0 && len(status.IgnoredSecrets) > 0 {
		fmt.Fprintf(&result, "   ok: %d password file(s) in .gitignore\n", len(status.IgnoredSecrets))
	}

	return result.String()
}
