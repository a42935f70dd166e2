package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"gopkg.in/yaml.v3"
)

// Format selects a transcript encoding
type Format string

const (
	YAMLFormat Format = "yaml"
	JSONFormat Format = "json"
)

// ParseFormat accepts yaml, yml or json in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return YAMLFormat, nil
	case "json":
		return JSONFormat, nil
	default:
		return "", fmt.Errorf("unknown transcript format: %q", s)
	}
}

// Transcript is a flattened, encodable copy of a session's history
type Transcript struct {
	SessionID string            `yaml:"session_id" json:"session_id"`
	Cwd       string            `yaml:"cwd" json:"cwd"`
	Entries   []TranscriptEntry `yaml:"entries" json:"entries"`
}

// TranscriptEntry flattens a [sandboxfs.HistoryEntry]; only the fields matching
// Kind are set, and Kind is empty when the command produced no output.
type TranscriptEntry struct {
	Command string               `yaml:"command" json:"command"`
	Path    string               `yaml:"path" json:"path"`
	Kind    sandboxfs.ResultKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Text    string               `yaml:"text,omitempty" json:"text,omitempty"`
	Items   []sandboxfs.Entry    `yaml:"items,omitempty" json:"items,omitempty"`
	Content string               `yaml:"content,omitempty" json:"content,omitempty"`
}

// Transcript captures the current history and working directory
func (s *Session) Transcript() Transcript {
	history := s.History()
	t := Transcript{
		SessionID: s.id,
		Cwd:       s.Cwd(),
		Entries:   make([]TranscriptEntry, 0, len(history)),
	}
	for _, e := range history {
		t.Entries = append(t.Entries, newTranscriptEntry(e))
	}
	return t
}

func newTranscriptEntry(e sandboxfs.HistoryEntry) TranscriptEntry {
	te := TranscriptEntry{Command: e.Command, Path: e.Path}
	if e.Output == nil {
		return te
	}
	te.Kind = e.Output.Kind()
	switch out := e.Output.(type) {
	case sandboxfs.Text:
		te.Text = string(out)
	case sandboxfs.Listing:
		te.Items = out.Items
	case sandboxfs.FileContent:
		te.Content = out.Content
	}
	return te
}

// WriteTranscript encodes t to w in the given format
func WriteTranscript(w io.Writer, t Transcript, format Format) error {
	switch format {
	case YAMLFormat:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		return enc.Close()
	case JSONFormat:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown transcript format: %q", format)
	}
}
