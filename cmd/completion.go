package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	script, err := completionScript(shell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nSupported: bash, zsh, fish\n", err)
		os.Exit(1)
	}
	fmt.Print(script)
}

func completionScript(shell string) (string, error) {
	switch shell {
	case "bash":
		return bashCompletion, nil
	case "zsh":
		return zshCompletion, nil
	case "fish":
		return fishCompletion, nil
	}
	return "", fmt.Errorf("unknown shell: %s", shell)
}

const bashCompletion = `_pbetool() {
    local cur prev words cword
    _init_completion || return

    local commands="enc dec seal unseal ls rm diff passwd keyring compact status serve help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    if [[ "$prev" == "-format" ]]; then
        COMPREPLY=($(compgen -W "pbkdf2 pbkdf2v sha256" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        enc|dec)
            COMPREPLY=($(compgen -W "-format -iterations -f" -- "$cur"))
            ;;
        seal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-format -f" -- "$cur"))
            fi
            ;;
        unseal|rm|diff|passwd)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o" -- "$cur"))
            else
                local names
                names=$(pbetool ls 2>/dev/null | sed -n 's/^  \(.*\) (.*/\1/p')
                COMPREPLY=($(compgen -W "$names" -- "$cur"))
            fi
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        serve)
            COMPREPLY=($(compgen -W "-host -port" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _pbetool pbetool
`

const zshCompletion = `#compdef pbetool

_pbetool() {
    local -a commands
    commands=(
        'enc:Encrypt a text with a password'
        'dec:Decrypt an envelope with a password'
        'seal:Encrypt a text and store it under a name'
        'unseal:Decrypt a stored entry'
        'ls:List stored entries'
        'rm:Remove stored entries'
        'diff:Compare a stored entry with a local file'
        'passwd:Re-encrypt entries under a new password'
        'keyring:Manage password in OS keyring'
        'compact:Compact the store file'
        'status:Show store status'
        'serve:Run the HTTP encryption service'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'pbetool commands' commands
            ;;
        args)
            case "${words[2]}" in
                enc|dec)
                    _arguments \
                        '-format[Envelope format]:format:(pbkdf2 pbkdf2v sha256)' \
                        '-iterations[PBKDF2 iterations]:count:' \
                        '-f[Read text from file]:file:_files'
                    ;;
                seal)
                    _arguments \
                        '-format[Envelope format]:format:(pbkdf2 pbkdf2v sha256)' \
                        '-f[Read text from file]:file:_files'
                    ;;
                unseal)
                    _arguments \
                        '-o[Write plaintext to file]:file:_files' \
                        '*:entry:_pbetool_entries'
                    ;;
                rm|passwd)
                    _arguments '*:entry:_pbetool_entries'
                    ;;
                diff)
                    _arguments '1:entry:_pbetool_entries' '2:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'pbetool commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_pbetool_entries() {
    local -a names
    names=(${(f)"$(pbetool ls 2>/dev/null | sed -n 's/^  \(.*\) (.*/\1/p')"})
    _describe -t names 'entries' names
}

_pbetool "$@"
`

const fishCompletion = `# pbetool fish completions

set -l commands enc dec seal unseal ls rm diff passwd keyring compact status serve help completion

complete -c pbetool -f

# Commands
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a enc -d 'Encrypt a text'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a dec -d 'Decrypt an envelope'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Store an encrypted entry'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a unseal -d 'Decrypt a stored entry'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List entries'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove entries'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare entry with file'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change password'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact store'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a serve -d 'Run HTTP service'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c pbetool -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# format flag
complete -c pbetool -n "__fish_seen_subcommand_from enc dec seal" -o format -x -a "pbkdf2 pbkdf2v sha256"
complete -c pbetool -n "__fish_seen_subcommand_from enc dec" -o iterations -x
complete -c pbetool -n "__fish_seen_subcommand_from enc dec seal" -o f -r -F

# entries
complete -c pbetool -n "__fish_seen_subcommand_from unseal rm diff passwd" -a "(pbetool ls 2>/dev/null | sed -n 's/^  \(.*\) (.*/\1/p')"
complete -c pbetool -n "__fish_seen_subcommand_from unseal" -o o -r -F

# keyring subcommands
complete -c pbetool -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c pbetool -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c pbetool -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
