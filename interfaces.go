package sandboxfs

import (
	"context"
	"io"
)

// ChangeOp identifies how a file write changed the tree
type ChangeOp string

const (
	CreateOp    ChangeOp = "create"
	OverwriteOp ChangeOp = "overwrite"
)

// Change describes a single mutation applied to a filesystem tree
type Change struct {
	Op   ChangeOp `json:"op" yaml:"op"`
	Path string   `json:"path" yaml:"path"` // canonical absolute path
}

// Event is a session state change delivered to an [Observer].
//
// Implementations are [EventSubmitted], [EventWritten], [EventMoved] and [EventCleared].
type Event interface {
	isEvent()
}

// EventSubmitted fires after a history entry is appended. Failed is set when
// the entry's output is an error message.
type EventSubmitted struct {
	Entry  HistoryEntry
	Failed bool
}

// EventWritten fires after echo redirection created or overwrote a file
type EventWritten struct {
	Change Change
}

// EventMoved fires after cd changed the working directory
type EventMoved struct {
	From, To string
}

// EventCleared fires after the history log was cleared
type EventCleared struct{}

func (EventSubmitted) isEvent() {}
func (EventWritten) isEvent()   {}
func (EventMoved) isEvent()     {}
func (EventCleared) isEvent()   {}

// Observer receives session change notifications. Notify is called
// synchronously after the mutation is applied and must not call back into
// the session.
type Observer interface {
	Notify(ev Event)
}

// ObserverFunc adapts a plain function to [Observer]
type ObserverFunc func(ev Event)

func (f ObserverFunc) Notify(ev Event) { f(ev) }

// SeedSource opens an encoded seed tree from some external location
type SeedSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SeedProvider creates a [SeedSource] for a location it knows how to reach,
// e.g. a file path or an http URL
type SeedProvider interface {
	NewSource(location string) (SeedSource, error)
}
