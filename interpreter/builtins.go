package interpreter

import "fmt"

type BuiltinCommand = string

const (
	HelpCommand  BuiltinCommand = "help"
	LsCommand    BuiltinCommand = "ls"
	CdCommand    BuiltinCommand = "cd"
	CatCommand   BuiltinCommand = "cat"
	EchoCommand  BuiltinCommand = "echo"
	PwdCommand   BuiltinCommand = "pwd"
	ClearCommand BuiltinCommand = "clear"
)

var builtins = map[BuiltinCommand]Command{
	HelpCommand:  helpCmd,
	LsCommand:    lsCmd,
	CdCommand:    cdCmd,
	CatCommand:   catCmd,
	EchoCommand:  echoCmd,
	PwdCommand:   pwdCmd,
	ClearCommand: clearCmd,
}

// RegisterBuiltins registers all built-in commands in help order
// or only the specific ones if names are provided
func RegisterBuiltins(r *Registry, names ...BuiltinCommand) error {
	if len(names) == 0 {
		names = []BuiltinCommand{HelpCommand, LsCommand, CdCommand, CatCommand, EchoCommand, PwdCommand, ClearCommand}
	}

	for _, name := range names {
		cmd, ok := builtins[name]
		if !ok {
			return fmt.Errorf("unknown builtin command: %s", name)
		}
		if err := r.Register(name, cmd); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a new registry holding every builtin
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// builtins table is static
		panic(err)
	}
	return r
}
