package sandboxfs

import "encoding/json"

// HistoryEntry records one submitted command, the working directory at the
// time it was submitted, and what it produced.
type HistoryEntry struct {
	Command string
	Output  Result // nil for side-effect-only commands
	Path    string
}

type historyEntryJSON struct {
	Command string          `json:"command"`
	Output  json.RawMessage `json:"output"`
	Path    string          `json:"path"`
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	out, err := MarshalResult(e.Output)
	if err != nil {
		return nil, err
	}
	return json.Marshal(historyEntryJSON{Command: e.Command, Output: out, Path: e.Path})
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Result
	if len(raw.Output) > 0 {
		var err error
		if out, err = UnmarshalResult(raw.Output); err != nil {
			return err
		}
	}
	*e = HistoryEntry{Command: raw.Command, Output: out, Path: raw.Path}
	return nil
}
