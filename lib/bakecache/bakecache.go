// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package bakecache memoizes baked asset bytes across bake runs. The
// cache is keyed by an opaque 32-byte fingerprint the caller computes
// over the source file and bake parameters; values are stored as
// individual LZ4-framed files under a cache directory. The cache is
// an accelerator only: every operation degrades to a miss on any
// error, and the archive format never observes whether a bake was
// cached.
package bakecache

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// Cache is a directory of memoized bake outputs. Safe for concurrent
// use: entries are immutable once written, and writes go through a
// temp-file rename.
type Cache struct {
	dir string
}

// Open creates the cache directory if needed and returns a handle.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bakecache: creating %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// path shards entries by the first fingerprint byte to keep directory
// listings manageable on big projects.
func (c *Cache) path(fingerprint [32]byte) string {
	name := hex.EncodeToString(fingerprint[:])
	return filepath.Join(c.dir, name[:2], name[2:]+".lz4")
}

// Get returns the cached bytes for fingerprint, or false on miss or
// any read error.
func (c *Cache) Get(fingerprint [32]byte) ([]byte, bool) {
	file, err := os.Open(c.path(fingerprint))
	if err != nil {
		return nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(lz4.NewReader(file))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores bytes under fingerprint. Concurrent writers of the same
// fingerprint race benignly: both write identical content and the
// last rename wins.
func (c *Cache) Put(fingerprint [32]byte, data []byte) error {
	target := c.path(fingerprint)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("bakecache: creating shard dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".put*")
	if err != nil {
		return fmt.Errorf("bakecache: creating temp entry: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	writer := lz4.NewWriter(tmp)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("bakecache: writing entry: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("bakecache: finishing entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("bakecache: closing entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("bakecache: publishing entry: %w", err)
	}
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("bakecache: listing %s: %w", c.dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("bakecache: removing %s: %w", entry.Name(), err)
		}
	}
	return nil
}
