package sandboxfs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultKind tags the variant of a [Result]
type ResultKind string

const (
	TextKind    ResultKind = "text"
	ListingKind ResultKind = "ls"
	ContentKind ResultKind = "cat"
)

// Result is the structured output of one command. A nil Result means the
// command only had side effects.
//
// Implementations are [Text], [Listing] and [FileContent].
type Result interface {
	Kind() ResultKind
	// String renders the result as plain terminal text
	String() string
}

// Text is plain text output; every error message is surfaced as Text.
type Text string

func (t Text) Kind() ResultKind { return TextKind }
func (t Text) String() string   { return string(t) }

// Listing is the output of ls
type Listing struct {
	Items []Entry `json:"items" yaml:"items"`
}

func (l Listing) Kind() ResultKind { return ListingKind }

// String prints one entry per line with directories suffixed by "/"
func (l Listing) String() string {
	var b strings.Builder
	for i, item := range l.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(item.Name)
		if item.Type == DirNodeType {
			b.WriteByte('/')
		}
	}
	return b.String()
}

// FileContent is the output of cat
type FileContent struct {
	Content string `json:"content" yaml:"content"`
}

func (f FileContent) Kind() ResultKind { return ContentKind }
func (f FileContent) String() string   { return f.Content }

// resultDTO is the tagged wire form shared by every Result variant
type resultDTO struct {
	Type    ResultKind `json:"type"`
	Text    *string    `json:"text,omitempty"`
	Items   *[]Entry   `json:"items,omitempty"`
	Content *string    `json:"content,omitempty"`
}

// MarshalResult encodes r as tagged JSON; a nil Result encodes as null.
func MarshalResult(r Result) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	dto := resultDTO{Type: r.Kind()}
	switch v := r.(type) {
	case Text:
		s := string(v)
		dto.Text = &s
	case Listing:
		items := v.Items
		if items == nil {
			items = []Entry{}
		}
		dto.Items = &items
	case FileContent:
		dto.Content = &v.Content
	default:
		return nil, fmt.Errorf("unknown result type %T", r)
	}
	return json.Marshal(dto)
}

// UnmarshalResult decodes the tagged JSON produced by [MarshalResult].
func UnmarshalResult(data []byte) (Result, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var dto resultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	switch dto.Type {
	case TextKind:
		if dto.Text == nil {
			return Text(""), nil
		}
		return Text(*dto.Text), nil
	case ListingKind:
		if dto.Items == nil {
			return Listing{Items: []Entry{}}, nil
		}
		return Listing{Items: *dto.Items}, nil
	case ContentKind:
		if dto.Content == nil {
			return FileContent{}, nil
		}
		return FileContent{Content: *dto.Content}, nil
	default:
		return nil, fmt.Errorf("unknown result type: %q", dto.Type)
	}
}
