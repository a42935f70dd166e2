package filesystem

import (
	"slices"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// Node is a file or directory in the tree. Files carry content, directories
// carry children keyed by name; the unused half is always zero.
//
// A file's content never changes in place: overwrites replace the whole Node
// in its parent, so a *Node handed out earlier keeps describing what it saw.
type Node struct {
	name     string
	typ      sandboxfs.NodeType
	content  string                    // file only
	children *xsync.Map[string, *Node] // directory only
}

var _ sandboxfs.NodeInfo = (*Node)(nil)

// NewFile creates a detached file node
func NewFile(name, content string) *Node {
	return &Node{name: name, typ: sandboxfs.FileNodeType, content: content}
}

// NewDir creates a detached, empty directory node
func NewDir(name string) *Node {
	return &Node{
		name:     name,
		typ:      sandboxfs.DirNodeType,
		children: xsync.NewMap[string, *Node](),
	}
}

// Name returns the node's name (last path component); "" for root
func (n *Node) Name() string {
	return n.name
}

func (n *Node) Type() sandboxfs.NodeType {
	return n.typ
}

func (n *Node) IsDir() bool {
	return n.typ == sandboxfs.DirNodeType
}

func (n *Node) IsFile() bool {
	return n.typ == sandboxfs.FileNodeType
}

// Content returns a file's content; "" for directories
func (n *Node) Content() string {
	return n.content
}

// AddChild stores child under its name, replacing any node already there.
// It is a no-op on files.
func (n *Node) AddChild(child *Node) {
	if !n.IsDir() {
		return
	}
	n.children.Store(child.name, child)
}

// GetChild returns a child node by name
func (n *Node) GetChild(name string) (child *Node, ok bool) {
	if !n.IsDir() {
		return nil, false
	}
	return n.children.Load(name)
}

// Len returns the number of children; 0 for files
func (n *Node) Len() int {
	if !n.IsDir() {
		return 0
	}
	return n.children.Size()
}

// Children returns the child nodes sorted by name
func (n *Node) Children() []*Node {
	if !n.IsDir() {
		return nil
	}
	children := make([]*Node, 0, n.children.Size())
	n.children.Range(func(_ string, ch *Node) bool {
		children = append(children, ch)
		return true
	})
	slices.SortFunc(children, func(a, b *Node) int {
		return strings.Compare(a.name, b.name)
	})
	return children
}

// Entries returns the directory listing sorted by name
func (n *Node) Entries() []sandboxfs.Entry {
	children := n.Children()
	entries := make([]sandboxfs.Entry, 0, len(children))
	for _, ch := range children {
		entries = append(entries, sandboxfs.Entry{Name: ch.name, Type: ch.typ})
	}
	return entries
}
