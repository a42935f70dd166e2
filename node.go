// Package sandboxfs contains core domain types and interfaces for the command-line
// sandbox: an in-memory filesystem driven by a small shell-like interpreter.
package sandboxfs

// NodeType valid types are FileNodeType "file", DirNodeType "directory"
type NodeType string

const (
	FileNodeType NodeType = "file"
	DirNodeType  NodeType = "directory"
)

// Entry is one line of a directory listing
type Entry struct {
	Name string   `json:"name" yaml:"name"`
	Type NodeType `json:"type" yaml:"type"`
}

// NodeInfo provides read-only access to node information for external consumers
type NodeInfo interface {
	// Name returns the node's name (last path component); "" for root
	Name() string

	Type() NodeType

	IsDir() bool
}
