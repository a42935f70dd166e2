// Package interpreter parses and executes sandbox command lines against a
// session's filesystem and working directory.
package interpreter

import (
	"errors"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrSyntax         = errors.New("syntax error")
	ErrMissingOperand = errors.New("missing operand")
)

// CommandError is a recoverable command failure. Msg is exactly what the
// user sees.
type CommandError struct {
	Command string
	Msg     string
	Err     error
}

func (e *CommandError) Error() string {
	return e.Msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Outcome is everything one executed line produced: the result to display
// and the state changes it applied, in order.
type Outcome struct {
	Result sandboxfs.Result
	Events []sandboxfs.Event
}

// Interpreter owns a filesystem and the working-directory cursor that commands
// resolve paths against. It is not safe for concurrent use.
type Interpreter struct {
	fs       *filesystem.FileSystem
	cwd      string // canonical absolute path of an existing directory
	registry *Registry
	logger   util.Logger
}

type Option func(*Interpreter)

// WithRegistry replaces the builtin command set
func WithRegistry(r *Registry) Option {
	return func(in *Interpreter) {
		in.registry = r
	}
}

// New creates an interpreter at "/" that exclusively owns fs
func New(fs *filesystem.FileSystem, opts ...Option) *Interpreter {
	in := &Interpreter{
		fs:     fs,
		cwd:    "/",
		logger: util.GetLogger("Interpreter"),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.registry == nil {
		in.registry = DefaultRegistry()
	}
	return in
}

// Cwd returns the current working directory
func (in *Interpreter) Cwd() string {
	return in.cwd
}

// FS returns the owned filesystem
func (in *Interpreter) FS() *filesystem.FileSystem {
	return in.fs
}

// Execute runs exactly one command line. Tokens are split on whitespace and the
// first one selects the command. Failures are returned as a [*CommandError] and
// never leave partial state behind. A blank line is a no-op.
func (in *Interpreter) Execute(line string) (Outcome, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Outcome{}, nil
	}
	name, args := fields[0], fields[1:]

	cmd, ok := in.registry.Get(name)
	if !ok {
		in.logger.Debug().Str("cmd", name).Msg("Command not found")
		return Outcome{}, &CommandError{Command: name, Msg: "command not found: " + name, Err: ErrUnknownCommand}
	}

	in.logger.Trace().Str("cmd", name).Strs("args", args).Str("cwd", in.cwd).Msg("Executing command")
	env := &Env{in: in}
	res, err := cmd(env, args)
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) {
			cmdErr = &CommandError{Command: name, Msg: name + ": " + err.Error(), Err: err}
		}
		in.logger.Debug().Err(cmdErr.Err).Str("cmd", name).Msg(cmdErr.Msg)
		return Outcome{Events: env.events}, cmdErr
	}
	return Outcome{Result: res, Events: env.events}, nil
}

// Env is what a running [Command] may touch. Mutations go through Env so the
// interpreter can report them.
type Env struct {
	in     *Interpreter
	events []sandboxfs.Event
}

func (e *Env) FS() *filesystem.FileSystem {
	return e.in.fs
}

func (e *Env) Cwd() string {
	return e.in.cwd
}

// Commands lists the available command names
func (e *Env) Commands() []string {
	return e.in.registry.Names()
}

// Chdir moves the cursor to the directory at path. The cursor is unchanged on error.
func (e *Env) Chdir(path string) error {
	_, full, err := e.in.fs.Dir(path, e.in.cwd)
	if err != nil {
		return err
	}
	from := e.in.cwd
	e.in.cwd = full
	if from != full {
		e.events = append(e.events, sandboxfs.EventMoved{From: from, To: full})
	}
	return nil
}

// WriteFile creates or overwrites a file relative to the cursor
func (e *Env) WriteFile(path, content string) error {
	change, err := e.in.fs.WriteFile(path, e.in.cwd, content)
	if err != nil {
		return err
	}
	e.events = append(e.events, sandboxfs.EventWritten{Change: change})
	return nil
}

// ClearHistory asks the owning session to empty its history log
func (e *Env) ClearHistory() {
	e.events = append(e.events, sandboxfs.EventCleared{})
}
