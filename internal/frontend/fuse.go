// Package frontend serves a mounted [filetable.Table] to the kernel as a FUSE
// filesystem. Every table entry is represented by one node, which refers to
// its entry by slot.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/gality369/simplefs/internal/filetable"
	"github.com/gality369/simplefs/internal/schema"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options are the settings of a FUSE mount.
type Options struct {
	FSName       string
	Debug        bool
	AllowOther   bool
	EntryTimeout time.Duration
	AttrTimeout  time.Duration
}

type filesystem struct {
	table *filetable.Table
	owner fuse.Owner

	// Serializes read-modify-write sequences of the frontend. The table
	// itself only replaces whole records.
	mu sync.Mutex
}

type node struct {
	fs.Inode
	fsys   *filesystem
	handle filetable.Handle
	name   string
}

var (
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeSetattrer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeWriter    = (*node)(nil)
	_ fs.NodeCreater   = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
	_ fs.NodeStatfser  = (*node)(nil)
)

// NewRoot returns the root node of a table, to be passed to [fs.Mount].
func NewRoot(table *filetable.Table) fs.InodeEmbedder {
	fsys := &filesystem{
		table: table,
		owner: fuse.Owner{
			Uid: uint32(os.Getuid()), //nolint:gosec
			Gid: uint32(os.Getgid()), //nolint:gosec
		},
	}

	return &node{fsys: fsys, handle: filetable.Root, name: schema.RootName}
}

// Mount serves a table at a mountpoint until the returned server is
// unmounted. The caller remains responsible for unmounting the table.
func Mount(table *filetable.Table, mountpoint string, opts Options) (*fuse.Server, error) {
	server, err := fs.Mount(mountpoint, NewRoot(table), &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     opts.FSName,
			Name:       "simplefs",
			Debug:      opts.Debug,
			AllowOther: opts.AllowOther,
		},
		EntryTimeout: &opts.EntryTimeout,
		AttrTimeout:  &opts.AttrTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("(frontend) failed to mount at %q: %w", mountpoint, err)
	}

	return server, nil
}

// entry returns the current entry of a node. A slot that was freed or
// reused by another entry since the node was created yields ESTALE.
func (n *node) entry() (schema.Entry, syscall.Errno) {
	e, err := n.fsys.table.Stat(n.handle)
	if err != nil {
		if errors.Is(err, filetable.ErrNotFound) {
			return schema.Entry{}, syscall.ESTALE
		}

		return schema.Entry{}, toErrno("stat", err)
	}

	if n.handle != filetable.Root && e.Name != n.name {
		return schema.Entry{}, syscall.ESTALE
	}

	return e, 0
}

func (n *node) fillAttr(e schema.Entry, out *fuse.Attr) {
	out.Mode = e.Mode
	out.Owner = n.fsys.owner
	out.Blksize = schema.RecordSize
	out.Nlink = 1

	if e.IsDir() {
		out.Nlink = 2
	} else {
		out.Size = uint64(len(e.Content()))
		out.Blocks = (out.Size + 511) / 512
	}
}

func (n *node) child(ctx context.Context, name string, h filetable.Handle, e schema.Entry, out *fuse.EntryOut) *fs.Inode {
	n.fillAttr(e, &out.Attr)

	if existing := n.GetChild(name); existing != nil {
		if c, ok := existing.Operations().(*node); ok && c.handle == h {
			return existing
		}
	}

	return n.NewInode(ctx, &node{fsys: n.fsys, handle: h, name: e.Name}, fs.StableAttr{Mode: e.Kind().TypeBits()})
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if _, errno := n.entry(); errno != 0 {
		return nil, errno
	}

	h, e, err := n.fsys.table.Lookup(n.handle, name)
	if err != nil {
		return nil, toErrno("lookup", err)
	}

	return n.child(ctx, name, h, e, out), 0
}

func (n *node) Readdir(_ context.Context) (fs.DirStream, syscall.Errno) {
	if _, errno := n.entry(); errno != 0 {
		return nil, errno
	}

	children, err := n.fsys.table.ListChildren(n.handle)
	if err != nil {
		return nil, toErrno("readdir", err)
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		entries = append(entries, fuse.DirEntry{
			Name: c.Name,
			Mode: c.Kind.TypeBits(),
		})
	}

	return fs.NewListDirStream(entries), 0
}

func (n *node) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	e, errno := n.entry()
	if errno != 0 {
		return errno
	}

	n.fillAttr(e, &out.Attr)

	return 0
}

// Setattr supports truncation. Other attribute changes are ignored.
func (n *node) Setattr(_ context.Context, _ fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		n.fsys.mu.Lock()
		errno := n.truncate(size)
		n.fsys.mu.Unlock()

		if errno != 0 {
			return errno
		}
	}

	e, errno := n.entry()
	if errno != 0 {
		return errno
	}

	n.fillAttr(e, &out.Attr)

	return 0
}

func (n *node) Open(_ context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	e, errno := n.entry()
	if errno != 0 {
		return nil, 0, errno
	}

	if e.IsDir() {
		return nil, 0, syscall.EISDIR
	}

	if flags&syscall.O_TRUNC != 0 && flags&syscall.O_ACCMODE != syscall.O_RDONLY {
		n.fsys.mu.Lock()
		errno = n.truncate(0)
		n.fsys.mu.Unlock()

		if errno != 0 {
			return nil, 0, errno
		}
	}

	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(_ context.Context, _ fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if _, errno := n.entry(); errno != 0 {
		return nil, errno
	}

	data, err := n.fsys.table.Read(n.handle)
	if err != nil {
		return nil, toErrno("read", err)
	}

	if off < 0 {
		return nil, syscall.EINVAL
	}

	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}

	end := min(off+int64(len(dest)), int64(len(data)))

	return fuse.ReadResultData(data[off:end]), 0
}

func (n *node) Write(_ context.Context, _ fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n.fsys.mu.Lock()
	defer n.fsys.mu.Unlock()

	if _, errno := n.entry(); errno != 0 {
		return 0, errno
	}

	cur, err := n.fsys.table.Read(n.handle)
	if err != nil {
		return 0, toErrno("write", err)
	}

	next, errno := splice(cur, data, off)
	if errno != 0 {
		return 0, errno
	}

	if err := n.fsys.table.Write(n.handle, next); err != nil {
		return 0, toErrno("write", err)
	}

	return uint32(len(data)), 0 //nolint:gosec
}

func (n *node) Create(ctx context.Context, name string, _ uint32, _ uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	h, e, errno := n.create(name, schema.KindRegular)
	if errno != 0 {
		return nil, nil, 0, errno
	}

	return n.child(ctx, name, h, e, out), nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Mkdir(ctx context.Context, name string, _ uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	h, e, errno := n.create(name, schema.KindDirectory)
	if errno != 0 {
		return nil, errno
	}

	return n.child(ctx, name, h, e, out), 0
}

func (n *node) Unlink(_ context.Context, name string) syscall.Errno {
	return n.remove(name, false)
}

func (n *node) Rmdir(_ context.Context, name string) syscall.Errno {
	return n.remove(name, true)
}

func (n *node) Statfs(_ context.Context, out *fuse.StatfsOut) syscall.Errno {
	stats, err := n.fsys.table.Stats()
	if err != nil {
		return toErrno("statfs", err)
	}

	out.Bsize = schema.RecordSize
	out.Frsize = schema.RecordSize
	out.Blocks = uint64(stats.Capacity) //nolint:gosec
	out.Bfree = uint64(stats.Free)      //nolint:gosec
	out.Bavail = uint64(stats.Free)     //nolint:gosec
	out.Files = uint64(stats.Capacity)  //nolint:gosec
	out.Ffree = uint64(stats.Free)      //nolint:gosec
	out.NameLen = schema.NameCapacity

	return 0
}

func (n *node) create(name string, kind schema.Kind) (filetable.Handle, schema.Entry, syscall.Errno) {
	if _, errno := n.entry(); errno != 0 {
		return 0, schema.Entry{}, errno
	}

	h, err := n.fsys.table.Create(n.handle, name, kind)
	if err != nil {
		return 0, schema.Entry{}, toErrno("create", err)
	}

	e, err := n.fsys.table.Stat(h)
	if err != nil {
		return 0, schema.Entry{}, toErrno("create", err)
	}

	return h, e, 0
}

func (n *node) remove(name string, dir bool) syscall.Errno {
	n.fsys.mu.Lock()
	defer n.fsys.mu.Unlock()

	if _, errno := n.entry(); errno != 0 {
		return errno
	}

	h, e, err := n.fsys.table.Lookup(n.handle, name)
	if err != nil {
		return toErrno("remove", err)
	}

	if dir && !e.IsDir() {
		return syscall.ENOTDIR
	}

	if !dir && e.IsDir() {
		return syscall.EISDIR
	}

	if err := n.fsys.table.Delete(h); err != nil {
		return toErrno("remove", err)
	}

	return 0
}

// truncate resizes the data of a regular file. The caller holds fsys.mu.
func (n *node) truncate(size uint64) syscall.Errno {
	e, errno := n.entry()
	if errno != 0 {
		return errno
	}

	if e.IsDir() {
		return syscall.EISDIR
	}

	next, errno := resize(e.Content(), size)
	if errno != 0 {
		return errno
	}

	if err := n.fsys.table.Write(n.handle, next); err != nil {
		return toErrno("truncate", err)
	}

	return 0
}
