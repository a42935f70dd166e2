package interpreter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/filesystem"
)

// RedirectOperator sends echo output into a file
const RedirectOperator = ">"

func helpCmd(env *Env, _ []string) (sandboxfs.Result, error) {
	return sandboxfs.Text("Available commands: " + strings.Join(env.Commands(), ", ")), nil
}

func pwdCmd(env *Env, _ []string) (sandboxfs.Result, error) {
	return sandboxfs.Text(env.Cwd()), nil
}

// ls [path] lists a directory, defaulting to the cursor
func lsCmd(env *Env, args []string) (sandboxfs.Result, error) {
	target := env.Cwd()
	if len(args) > 0 {
		target = args[0]
	}
	dir, _, err := env.FS().Dir(target, env.Cwd())
	if err != nil {
		return nil, &CommandError{
			Command: LsCommand,
			Msg:     fmt.Sprintf("ls: '%s': No such file or directory", target),
			Err:     err,
		}
	}
	return sandboxfs.Listing{Items: dir.Entries()}, nil
}

// cd [path] moves the cursor, defaulting to root
func cdCmd(env *Env, args []string) (sandboxfs.Result, error) {
	target := "/"
	if len(args) > 0 {
		target = args[0]
	}
	if err := env.Chdir(target); err != nil {
		return nil, &CommandError{
			Command: CdCommand,
			Msg:     "cd: no such file or directory: " + target,
			Err:     err,
		}
	}
	return nil, nil
}

func catCmd(env *Env, args []string) (sandboxfs.Result, error) {
	if len(args) == 0 {
		return nil, &CommandError{Command: CatCommand, Msg: "cat: missing file operand", Err: ErrMissingOperand}
	}
	content, err := env.FS().ReadFile(args[0], env.Cwd())
	if err != nil {
		return nil, &CommandError{
			Command: CatCommand,
			Msg:     fmt.Sprintf("cat: %s: No such file or directory", args[0]),
			Err:     err,
		}
	}
	return sandboxfs.FileContent{Content: content}, nil
}

// echo <text> [> path]. Without redirection the words are echoed back as typed.
// With it, the words before ">" are written to the first word after it and
// one leading and one trailing double quote are stripped from the content.
func echoCmd(env *Env, args []string) (sandboxfs.Result, error) {
	idx := slices.Index(args, RedirectOperator)
	if idx == -1 {
		return sandboxfs.Text(strings.Join(args, " ")), nil
	}
	if idx+1 >= len(args) {
		return nil, &CommandError{
			Command: EchoCommand,
			Msg:     "echo: syntax error near unexpected token `newline'",
			Err:     ErrSyntax,
		}
	}

	target := args[idx+1]
	content := stripQuotes(strings.Join(args[:idx], " "))
	if err := env.WriteFile(target, content); err != nil {
		reason := "No such file or directory"
		if errors.Is(err, filesystem.ErrIsDirectory) {
			reason = "Is a directory"
		}
		return nil, &CommandError{
			Command: EchoCommand,
			Msg:     fmt.Sprintf("echo: cannot create file '%s': %s", target, reason),
			Err:     err,
		}
	}
	return nil, nil
}

func clearCmd(env *Env, _ []string) (sandboxfs.Result, error) {
	env.ClearHistory()
	return nil, nil
}

// stripQuotes drops a single leading and a single trailing double quote
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
