// Package session ties a filesystem and interpreter together into one sandbox
// session with a history log, command recall and change notifications.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/brettbedarf/sandboxfs/interpreter"
	"github.com/google/uuid"
)

// Session is one isolated sandbox: its own tree, cursor and history.
// All methods are safe for concurrent use; submissions are serialized.
type Session struct {
	id        string
	limit     int // max history entries; 0 = unlimited
	now       func() time.Time
	createdAt time.Time
	logger    util.Logger

	mu         sync.Mutex // protects the fields below
	interp     *interpreter.Interpreter
	history    []sandboxfs.HistoryEntry
	nav        int // recall position into history; len(history) means "fresh input"
	observers  []*observerSlot
	lastActive time.Time
}

type observerSlot struct {
	sandboxfs.Observer
}

type options struct {
	id       string
	fs       *filesystem.FileSystem
	registry *interpreter.Registry
	now      func() time.Time
}

type Option func(*options)

// WithID overrides the generated session ID
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithFileSystem starts the session from fs instead of the seed tree.
// The session takes ownership of fs.
func WithFileSystem(fs *filesystem.FileSystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithRegistry replaces the builtin command set
func WithRegistry(r *interpreter.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithClock sets the time source used for activity tracking
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a session at "/" over a fresh copy of the seed tree
func New(cfg *config.Config, opts ...Option) *Session {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.fs == nil {
		o.fs = filesystem.NewFS()
	}
	var interpOpts []interpreter.Option
	if o.registry != nil {
		interpOpts = append(interpOpts, interpreter.WithRegistry(o.registry))
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	now := o.now()
	s := &Session{
		id:         o.id,
		limit:      cfg.HistoryLimit,
		now:        o.now,
		createdAt:  now,
		lastActive: now,
		interp:     interpreter.New(o.fs, interpOpts...),
		logger:     util.GetLogger("Session").With().Str("session", o.id).Logger(),
	}
	s.logger.Debug().Msg("Session created")
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive is the time of the last submission, or creation
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Submit feeds one line of input. Blank lines are ignored. Any other line
// runs to completion and appends exactly one history entry holding the line,
// the working directory it ran in and its output, with failures recorded as
// their error text. clear empties the history instead of appending.
//
// The returned entry is what was recorded; recorded is false for blank lines
// and clear.
func (s *Session) Submit(line string) (entry sandboxfs.HistoryEntry, recorded bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return entry, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Command = line
	entry.Path = s.interp.Cwd()
	out, err := s.interp.Execute(line)
	entry.Output = out.Result
	if err != nil {
		entry.Output = sandboxfs.Text(err.Error())
	}
	s.lastActive = s.now()

	cleared := false
	for _, ev := range out.Events {
		if _, ok := ev.(sandboxfs.EventCleared); ok {
			cleared = true
		}
	}
	if cleared {
		s.history = nil
	} else {
		s.history = append(s.history, entry)
		if s.limit > 0 && len(s.history) > s.limit {
			s.history = append([]sandboxfs.HistoryEntry(nil), s.history[len(s.history)-s.limit:]...)
		}
	}
	s.nav = len(s.history)

	for _, ev := range out.Events {
		s.notifyLocked(ev)
	}
	if !cleared {
		s.notifyLocked(sandboxfs.EventSubmitted{Entry: entry, Failed: err != nil})
	}
	return entry, !cleared
}

// History returns a copy of the history log, oldest first
func (s *Session) History() []sandboxfs.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sandboxfs.HistoryEntry(nil), s.history...)
}

// Cwd returns the current working directory, e.g. for prompt display
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interp.Cwd()
}

// Snapshot returns a detached copy of the session's tree
func (s *Session) Snapshot() *filesystem.SnapshotNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interp.FS().Snapshot()
}

// Subscribe registers o for change notifications and returns a function that
// removes it. Observers run synchronously while the session is locked and
// must not call back into it.
func (s *Session) Subscribe(o sandboxfs.Observer) (unsubscribe func()) {
	slot := &observerSlot{o}
	s.mu.Lock()
	s.observers = append(s.observers, slot)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.observers {
			if cur == slot {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notifyLocked(ev sandboxfs.Event) {
	for _, o := range s.observers {
		o.Notify(ev)
	}
}

// RecallPrev steps back through submitted commands, like the up arrow.
// It stops at the oldest command; ok is false when there is nothing to recall.
func (s *Session) RecallPrev() (command string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := max(0, s.nav-1)
	if idx >= len(s.history) {
		return "", false
	}
	s.nav = idx
	return s.history[idx].Command, true
}

// RecallNext steps forward through submitted commands, like the down arrow.
// Stepping past the newest command returns to fresh input with ok false.
func (s *Session) RecallNext() (command string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(len(s.history), s.nav+1)
	s.nav = idx
	if idx < len(s.history) {
		return s.history[idx].Command, true
	}
	return "", false
}
