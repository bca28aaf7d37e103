// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package pakfuse mounts an opened pak archive as a read-only FUSE
// filesystem for inspection: one directory per asset kind, one file
// per AssetKey, mirroring the key's path structure. File contents are
// the asset's canonical decompressed encoding, decoded lazily on
// first access. This is a debugging surface — runtime consumers use
// lib/reader directly.
package pakfuse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/reader"
)

// Options configures the mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if it does not exist.
	Mountpoint string

	// Reader is the opened archive to expose.
	Reader *reader.Reader

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool
}

// Mount mounts the archive filesystem. The caller must call Unmount
// on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("pakfuse: mountpoint is required")
	}
	if options.Reader == nil {
		return nil, fmt.Errorf("pakfuse: reader is required")
	}
	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("pakfuse: creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{reader: options.Reader}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "pak-archive",
			Name:       "pak",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pakfuse: mounting at %s: %w", options.Mountpoint, err)
	}
	return server, nil
}

// rootNode holds one directory per asset kind that has entries.
type rootNode struct {
	gofuse.Inode
	reader *reader.Reader
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	for _, kind := range assets.AllKinds {
		keys := r.reader.Keys(kind)
		if len(keys) == 0 {
			continue
		}
		kindDir := r.NewPersistentInode(ctx, &gofuse.Inode{}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
		r.AddChild(kind.String(), kindDir, true)

		for _, key := range keys {
			addAssetFile(ctx, kindDir, r.reader, kind, key)
		}
	}
}

// addAssetFile places one asset file under its kind directory,
// creating intermediate directories for each path segment of the key.
func addAssetFile(ctx context.Context, dir *gofuse.Inode, archive *reader.Reader, kind assets.Kind, key assets.Key) {
	segments := strings.Split(strings.TrimLeft(string(key), "/"), "/")
	current := dir
	for _, segment := range segments[:len(segments)-1] {
		child := current.GetChild(segment)
		if child == nil {
			child = current.NewPersistentInode(ctx, &gofuse.Inode{}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
			current.AddChild(segment, child, true)
		}
		current = child
	}
	leaf := current.NewPersistentInode(ctx, &assetNode{
		reader: archive,
		kind:   kind,
		key:    key,
	}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	current.AddChild(segments[len(segments)-1], leaf, true)
}

// assetNode is one asset's file. The canonical bytes are fetched and
// kept on first access; the archive stores no uncompressed size, so
// Getattr also triggers the fetch.
type assetNode struct {
	gofuse.Inode
	reader *reader.Reader
	kind   assets.Kind
	key    assets.Key

	mu   sync.Mutex
	data []byte
}

var _ gofuse.NodeGetattrer = (*assetNode)(nil)
var _ gofuse.NodeOpener = (*assetNode)(nil)
var _ gofuse.NodeReader = (*assetNode)(nil)

func (n *assetNode) fetch() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.data != nil {
		return n.data, nil
	}
	data, err := n.reader.RawBlob(n.kind, n.key)
	if err != nil {
		return nil, err
	}
	n.data = data
	return data, nil
}

func (n *assetNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	data, err := n.fetch()
	if err != nil {
		return syscall.EIO
	}
	out.Mode = 0o444
	out.Size = uint64(len(data))
	return 0
}

func (n *assetNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if _, err := n.fetch(); err != nil {
		return nil, 0, syscall.EIO
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *assetNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.fetch()
	if err != nil {
		return nil, syscall.EIO
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}
