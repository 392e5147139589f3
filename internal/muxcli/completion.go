package muxcli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func completion() *cli.Command {
	return &cli.Command{
		Name:        "complete",
		Aliases:     []string{"completion"},
		Usage:       "Generate bash, fish or zsh completions.",
		ArgsUsage:   "SHELL",
		Description: "Output shell completion code for bash, zsh or fish.",
		Action: func(c *cli.Context) error {
			shell := "bash"
			switch c.NArg() {
			case 0:
			case 1:
				shell = c.Args().First()
			default:
				return cli.ShowSubcommandHelp(c)
			}

			switch shell {
			case "bash":
				return bashCompletion(c)
			case "fish":
				return fishCompletion(c)
			case "zsh":
				return zshCompletion(c)
			default:
				return fmt.Errorf("only bash, fish or zsh are supported, got %q", shell)
			}
		},
	}
}

const bashCompletionTemplate = `_%[2]s_bash_autocomplete() {
    local cur
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    COMPREPLY=( $(compgen -W "%[1]s" -- ${cur}) )
    return 0
}

complete -F _%[2]s_bash_autocomplete %[3]s`

func bashCompletion(c *cli.Context) error {
	words := []string{}
	for _, command := range visibleCommands(c.App) {
		words = append(words, command.Names()...)
	}
	for _, flag := range c.App.Flags {
		words = append(words, "--"+flag.Names()[0])
	}

	fmt.Fprintln(c.App.Writer, fmt.Sprintf(bashCompletionTemplate,
		strings.Join(words, " "),
		strings.ReplaceAll(c.App.Name, "-", "_"),
		c.App.Name,
	))
	return nil
}

const zshCompletionTemplate = `_%[3]s_zsh_autocomplete() {
  local -a cmds
  cmds=(
        %[1]s
  )
  _describe 'commands' cmds

  local -a opts
  opts=(
        %[2]s
  )
  _describe 'global options' opts
}

compdef _%[3]s_zsh_autocomplete %[4]s`

func zshCompletion(c *cli.Context) error {
	commands := []string{}
	for _, command := range visibleCommands(c.App) {
		for _, name := range command.Names() {
			commands = append(commands, zshQuoteCmd(name, command.Usage))
		}
	}

	opts := []string{}
	for _, flag := range c.App.Flags {
		opts = append(opts, "'--"+flag.Names()[0]+"'")
	}

	fmt.Fprintln(c.App.Writer, fmt.Sprintf(zshCompletionTemplate,
		strings.Join(commands, "\n        "),
		strings.Join(opts, "\n        "),
		strings.ReplaceAll(c.App.Name, "-", "_"),
		c.App.Name,
	))
	return nil
}

func zshQuoteCmd(name, usage string) string {
	if !strings.ContainsRune(usage, '\'') {
		return "'" + name + ":" + usage + "'"
	}
	return "\"" + name + ":" + strings.ReplaceAll(usage, "$", "\\$") + "\""
}

func fishCompletion(c *cli.Context) error {
	completion, err := c.App.ToFishCompletion()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, strings.TrimSpace(completion))
	return nil
}

func visibleCommands(app *cli.App) []*cli.Command {
	var commands []*cli.Command
	for _, command := range app.Commands {
		if !command.Hidden {
			commands = append(commands, command)
		}
	}
	return commands
}
