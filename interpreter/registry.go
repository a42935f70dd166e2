package interpreter

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/sandboxfs"
)

// Command runs one invocation. args excludes the command name.
// A returned error must be a [*CommandError] carrying the text shown to the user.
type Command func(env *Env, args []string) (sandboxfs.Result, error)

// Registry maps command names to implementations. Registration order is kept
// so help output is stable.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd under name. The first registration of a name wins; an
// error is returned for duplicates.
func (r *Registry) Register(name string, cmd Command) error {
	if name == "" || cmd == nil {
		return fmt.Errorf("invalid command registration: %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

// Get looks up a command by name
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered command names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
