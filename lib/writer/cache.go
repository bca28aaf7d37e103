// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package writer

import (
	"encoding"
	"encoding/binary"
	"os"

	"github.com/zeebo/blake3"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bakecache"
	"github.com/pak-forge/pak/lib/codec"
	"github.com/pak-forge/pak/lib/resolver"
)

// Cacheable kinds are source-backed and dependency-free: their baked
// bytes are a pure function of the source file and the description,
// so a fingerprint over both is a safe memoization key. Kinds whose
// baked form embeds BlobIds (fonts, materials, models, scenes) are
// never cached — BlobIds are only meaningful within one bake run.
func cacheable(kind assets.Kind) bool {
	switch kind {
	case assets.KindBitmap, assets.KindMesh, assets.KindAnimation:
		return true
	default:
		return false
	}
}

var cacheDomainKey = [32]byte{
	'p', 'a', 'k', '.', 'b', 'a', 'k', 'e', 'c', 'a', 'c', 'h', 'e',
}

// cacheFingerprint hashes everything the bake output depends on: the
// asset kind, the deterministic CBOR encoding of the description, and
// the source file's identity (path, size, mtime). A stale fingerprint
// is harmless — it just misses.
func cacheFingerprint(item *resolver.Item) ([32]byte, bool) {
	var zero [32]byte
	if !cacheable(item.Kind) || item.SrcPath == "" {
		return zero, false
	}
	info, err := os.Stat(item.SrcPath)
	if err != nil {
		return zero, false
	}
	docBytes, err := codec.MarshalManifest(item.Doc)
	if err != nil {
		return zero, false
	}

	hasher, err := blake3.NewKeyed(cacheDomainKey[:])
	if err != nil {
		return zero, false
	}
	hasher.Write([]byte{uint8(item.Kind)})
	hasher.Write(docBytes)
	hasher.Write([]byte(item.SrcPath))
	var stamp [16]byte
	binary.LittleEndian.PutUint64(stamp[0:8], uint64(info.Size()))
	binary.LittleEndian.PutUint64(stamp[8:16], uint64(info.ModTime().UnixNano()))
	hasher.Write(stamp[:])

	var fingerprint [32]byte
	hasher.Sum(fingerprint[:0])
	return fingerprint, true
}

func cacheGet(cache *bakecache.Cache, item *resolver.Item) (any, bool) {
	if cache == nil {
		return nil, false
	}
	fingerprint, ok := cacheFingerprint(item)
	if !ok {
		return nil, false
	}
	data, ok := cache.Get(fingerprint)
	if !ok {
		return nil, false
	}

	var entity interface {
		encoding.BinaryUnmarshaler
	}
	switch item.Kind {
	case assets.KindBitmap:
		entity = &assets.Bitmap{}
	case assets.KindMesh:
		entity = &assets.Mesh{}
	case assets.KindAnimation:
		entity = &assets.Animation{}
	default:
		return nil, false
	}
	if err := entity.UnmarshalBinary(data); err != nil {
		// Corrupt cache entry: ignore it and re-bake.
		return nil, false
	}
	return entity, true
}

func cachePut(cache *bakecache.Cache, item *resolver.Item, entity any) {
	if cache == nil {
		return
	}
	fingerprint, ok := cacheFingerprint(item)
	if !ok {
		return
	}
	marshaler, ok := entity.(encoding.BinaryMarshaler)
	if !ok {
		return
	}
	data, err := marshaler.MarshalBinary()
	if err != nil {
		return
	}
	// Cache writes are best-effort; a full disk only costs re-bakes.
	_ = cache.Put(fingerprint, data)
}
