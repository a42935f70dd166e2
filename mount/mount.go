// Package mount exports a sandbox tree snapshot as a read-only FUSE filesystem.
package mount

import (
	"context"
	"syscall"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const (
	fileMode = 0o444
	dirMode  = 0o555
)

// Server wraps the underlying fuse.Server.
type Server struct {
	server *fuse.Server
}

// Root is the root inode of a mounted snapshot. The whole tree is built
// once in OnAdd and never changes afterwards.
type Root struct {
	fs.Inode
	snap *filesystem.SnapshotNode
}

var (
	_ = (fs.NodeOnAdder)((*Root)(nil))
	_ = (fs.NodeGetattrer)((*Root)(nil))
)

// NewRoot creates the FUSE root for snap, which must be a directory
func NewRoot(snap *filesystem.SnapshotNode) *Root {
	return &Root{snap: snap}
}

func (r *Root) OnAdd(ctx context.Context) {
	logger := util.GetLogger("Mount.OnAdd")
	n := addChildren(ctx, &r.Inode, r.snap)
	logger.Debug().Int("nodes", n).Msg("Snapshot tree built")
}

func (r *Root) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | dirMode
	return fs.OK
}

// addChildren mirrors snapshot children under parent and returns how many
// inodes were created
func addChildren(ctx context.Context, parent *fs.Inode, snap *filesystem.SnapshotNode) int {
	count := 0
	for _, ch := range snap.Children {
		var child *fs.Inode
		switch ch.Type {
		case sandboxfs.DirNodeType:
			child = parent.NewPersistentInode(ctx, &dirNode{}, fs.StableAttr{Mode: fuse.S_IFDIR})
			count += addChildren(ctx, child, ch)
		default:
			file := &fs.MemRegularFile{
				Data: []byte(ch.Content),
				Attr: fuse.Attr{Mode: fileMode},
			}
			child = parent.NewPersistentInode(ctx, file, fs.StableAttr{Mode: fuse.S_IFREG})
		}
		parent.AddChild(ch.Name, child, false)
		count++
	}
	return count
}

type dirNode struct {
	fs.Inode
}

var _ = (fs.NodeGetattrer)((*dirNode)(nil))

func (d *dirNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | dirMode
	return fs.OK
}

// Mount mounts snap at mountPoint according to opts and waits until the
// kernel has the mount. Returns a Server you can Wait() on and Unmount().
func Mount(snap *filesystem.SnapshotNode, mountPoint string, opts *config.MountOptions) (*Server, error) {
	logger := util.GetLogger("Mount")
	if opts == nil {
		opts = &config.MountOptions{
			FsName: config.DefaultFsName,
			Name:   config.DefaultName,
		}
	}
	fsOpts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName: opts.FsName,
			Name:   opts.Name,
			Debug:  opts.Debug,
			Logger: util.NewLogLogger("Fuse", util.DebugLevel),
		},
	}

	srv, err := fs.Mount(mountPoint, NewRoot(snap), fsOpts)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("mountPoint", mountPoint).Msg("Sandbox tree mounted")
	return &Server{server: srv}, nil
}

// Wait blocks until the filesystem is unmounted.
func (s *Server) Wait() {
	s.server.Wait()
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	return s.server.Unmount()
}
