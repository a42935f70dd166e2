package filesystem

import (
	"errors"
	iofs "io/fs"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/internal/util"
)

var (
	ErrNotFound       = iofs.ErrNotExist
	ErrNotDir         = errors.New("not a directory")
	ErrNotFile        = errors.New("not a file")
	ErrIsDirectory    = errors.New("is a directory")
	ErrParentNotFound = errors.New("parent directory does not exist")
)

// FileSystem is a single session's in-memory tree. It is not safe for
// concurrent mutation; the owning session serializes access.
type FileSystem struct {
	root *Node // Root of node tree, addressed as "/"
}

// Resolution is the outcome of [FileSystem.ResolvePath].
//
// Node is nil when the path does not exist. When only the final segment is
// missing, Parent, Name and FullPath still describe where it would live; when
// resolution failed earlier every field is zero.
type Resolution struct {
	Node     *Node
	Parent   *Node // Directory holding Node; nil for root
	Name     string
	FullPath string // Canonical absolute path
}

// Found reports whether the path resolved to an existing node
func (r Resolution) Found() bool {
	return r.Node != nil
}

// NewFS creates a filesystem holding the fixed seed tree
func NewFS() *FileSystem {
	fs, err := NewFSFromSnapshot(DefaultSeed())
	if err != nil {
		// DefaultSeed is static and always valid
		panic(err)
	}
	return fs
}

// NewEmptyFS creates a filesystem with only the root directory
func NewEmptyFS() *FileSystem {
	return &FileSystem{root: NewDir("")}
}

// Root returns the root directory
func (fs *FileSystem) Root() *Node {
	return fs.root
}

// ResolvePath maps path, absolute or relative to cursor, onto the tree.
//
// Empty and "." segments are dropped. ".." moves to the parent directory that
// was actually walked through (a no-op at root), so segments after it resolve
// against the right node. Walking into a file or through a missing node fails.
// The tree is never modified.
func (fs *FileSystem) ResolvePath(path, cursor string) Resolution {
	segments := splitPath(joinCursor(path, cursor))

	stack := []*Node{fs.root} // walked nodes; stack[i+1] is a child of stack[i]
	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		cur := stack[len(stack)-1]
		if cur == nil || !cur.IsDir() {
			return Resolution{}
		}
		if seg == ".." {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				names = names[:len(names)-1]
			}
			continue
		}
		child, _ := cur.GetChild(seg)
		stack = append(stack, child)
		names = append(names, seg)
	}

	res := Resolution{
		Node:     stack[len(stack)-1],
		FullPath: "/" + strings.Join(names, "/"),
	}
	if len(names) > 0 {
		res.Parent = stack[len(stack)-2]
		res.Name = names[len(names)-1]
	}
	return res
}

// Dir resolves path to an existing directory and returns it with its
// canonical path.
func (fs *FileSystem) Dir(path, cursor string) (*Node, string, error) {
	res := fs.ResolvePath(path, cursor)
	if !res.Found() {
		return nil, "", &iofs.PathError{Op: "open", Path: path, Err: ErrNotFound}
	}
	if !res.Node.IsDir() {
		return nil, "", &iofs.PathError{Op: "open", Path: path, Err: ErrNotDir}
	}
	return res.Node, res.FullPath, nil
}

// ReadFile resolves path to an existing file and returns its content
func (fs *FileSystem) ReadFile(path, cursor string) (string, error) {
	res := fs.ResolvePath(path, cursor)
	if !res.Found() {
		return "", &iofs.PathError{Op: "read", Path: path, Err: ErrNotFound}
	}
	if !res.Node.IsFile() {
		return "", &iofs.PathError{Op: "read", Path: path, Err: ErrIsDirectory}
	}
	return res.Node.Content(), nil
}

// WriteFile creates or overwrites the file at path with content. The parent
// directory must already exist and the target must not be a directory.
// The returned Change reports what happened to the tree.
func (fs *FileSystem) WriteFile(path, cursor, content string) (sandboxfs.Change, error) {
	logger := util.GetLogger("FS.WriteFile")

	res := fs.ResolvePath(path, cursor)
	if res.Found() && res.Node.IsDir() {
		return sandboxfs.Change{}, &iofs.PathError{Op: "write", Path: path, Err: ErrIsDirectory}
	}
	if res.Parent == nil {
		return sandboxfs.Change{}, &iofs.PathError{Op: "write", Path: path, Err: ErrParentNotFound}
	}

	op := sandboxfs.CreateOp
	if res.Found() {
		op = sandboxfs.OverwriteOp
	}
	res.Parent.AddChild(NewFile(res.Name, content))
	logger.Debug().Str("path", res.FullPath).Str("op", string(op)).Int("size", len(content)).Msg("Wrote file")

	return sandboxfs.Change{Op: op, Path: res.FullPath}, nil
}

// Count returns the number of files and directories below root
func (fs *FileSystem) Count() (files, dirs int) {
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, ch := range n.Children() {
			if ch.IsDir() {
				dirs++
				walk(ch)
			} else {
				files++
			}
		}
	}
	walk(fs.root)
	return files, dirs
}

// joinCursor makes path absolute against cursor
func joinCursor(path, cursor string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return cursor + "/" + path
}

// splitPath splits on "/" and drops empty and "." segments
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" || seg == "." {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}
