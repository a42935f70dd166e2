package filesystem

import (
	"fmt"
	"strings"

	"github.com/brettbedarf/sandboxfs"
)

// SnapshotNode is a detached, deep copy of a node and its descendants.
// Observers, transcripts and exports read snapshots instead of the live tree.
type SnapshotNode struct {
	Name     string             `json:"name" yaml:"name"`
	Type     sandboxfs.NodeType `json:"type" yaml:"type"`
	Content  string             `json:"content,omitempty" yaml:"content,omitempty"`
	Children []*SnapshotNode    `json:"children,omitempty" yaml:"children,omitempty"`
}

// Snapshot deep copies the tree. Children are sorted by name.
func (fs *FileSystem) Snapshot() *SnapshotNode {
	return snapshotNode(fs.root)
}

func snapshotNode(n *Node) *SnapshotNode {
	snap := &SnapshotNode{Name: n.Name(), Type: n.Type(), Content: n.Content()}
	for _, ch := range n.Children() {
		snap.Children = append(snap.Children, snapshotNode(ch))
	}
	return snap
}

// Lookup finds a descendant by canonical absolute path ("/" returns s)
func (s *SnapshotNode) Lookup(path string) (*SnapshotNode, bool) {
	cur := s
	for _, seg := range splitPath(path) {
		var next *SnapshotNode
		for _, ch := range cur.Children {
			if ch != nil && ch.Name == seg {
				next = ch
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// NewFSFromSnapshot builds a live filesystem from snap, which must be a
// directory. Child names must be unique path segments.
func NewFSFromSnapshot(snap *SnapshotNode) (*FileSystem, error) {
	if snap == nil || snap.Type != sandboxfs.DirNodeType {
		return nil, fmt.Errorf("snapshot root must be a directory")
	}
	root, err := buildNode("", snap)
	if err != nil {
		return nil, err
	}
	return &FileSystem{root: root}, nil
}

func buildNode(name string, snap *SnapshotNode) (*Node, error) {
	switch snap.Type {
	case sandboxfs.FileNodeType:
		if len(snap.Children) > 0 {
			return nil, fmt.Errorf("file %q cannot have children", name)
		}
		return NewFile(name, snap.Content), nil
	case sandboxfs.DirNodeType:
		dir := NewDir(name)
		for _, ch := range snap.Children {
			if ch == nil {
				return nil, fmt.Errorf("nil entry in %q", name)
			}
			if err := validName(ch.Name); err != nil {
				return nil, err
			}
			if _, exists := dir.GetChild(ch.Name); exists {
				return nil, fmt.Errorf("duplicate entry %q in %q", ch.Name, name)
			}
			child, err := buildNode(ch.Name, ch)
			if err != nil {
				return nil, err
			}
			dir.AddChild(child)
		}
		return dir, nil
	default:
		return nil, fmt.Errorf("unknown node type: %q", snap.Type)
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("invalid entry name: %q", name)
	}
	return nil
}
