// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package reader opens pak archives and exposes typed lookups by
// AssetKey. Open materializes the manifest fully in memory; blob
// payloads are read, decompressed and parsed lazily on each lookup.
// A Reader is safe for concurrent use: reads are independent after
// open, and every lookup returns an owned value.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/codec"
	"github.com/pak-forge/pak/lib/container"
)

// ErrUnknownKey is returned by lookups for keys absent from the
// archive's manifest.
var ErrUnknownKey = errors.New("reader: unknown asset key")

// Reader is an opened archive.
type Reader struct {
	manifest *container.Manifest
	envelope *container.Envelope

	// mu serializes seeks on source; blob reads are short and the
	// payload layout makes each a single seek + read.
	mu     sync.Mutex
	source io.ReadSeeker
	closer io.Closer
}

// Open opens an archive file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", path, err)
	}
	reader, err := New(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// New opens an archive from a seekable byte source. The source must
// remain valid for the Reader's lifetime.
func New(source io.ReadSeeker) (*Reader, error) {
	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reader: seeking to start: %w", err)
	}
	envelope, err := container.ReadEnvelope(source)
	if err != nil {
		return nil, err
	}

	manifestBytes, err := decompressManifest(envelope)
	if err != nil {
		return nil, err
	}
	manifest, err := container.Unmarshal(manifestBytes)
	if err != nil {
		return nil, err
	}

	return &Reader{
		manifest: manifest,
		envelope: envelope,
		source:   source,
	}, nil
}

// decompressManifest recovers the manifest bytes. The header does not
// name the archive's default codec, so each kind is tried in turn and
// checked against the recorded uncompressed length; the identity
// codec additionally requires the lengths to match exactly. This
// probe order is part of the format-version contract.
func decompressManifest(envelope *container.Envelope) ([]byte, error) {
	compressed := envelope.ManifestCompressed
	want := int(envelope.ManifestUncompressedLen)

	for _, kind := range []codec.Kind{codec.KindSnap, codec.KindBrotli} {
		out, err := codec.Decompress(kind, compressed)
		if err == nil && len(out) == want {
			return out, nil
		}
	}
	if len(compressed) == want {
		return compressed, nil
	}
	return nil, fmt.Errorf("%w: manifest does not decompress to its recorded length", container.ErrCorrupt)
}

// Close releases the underlying file when the Reader was opened from
// a path. Readers constructed over a caller-owned byte source leave
// the source open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Contains reports whether the archive holds an asset of the given
// kind under key.
func (r *Reader) Contains(kind assets.Kind, key assets.Key) bool {
	_, ok := r.manifest.Lookup(kind, key)
	return ok
}

// Keys returns every AssetKey of the given kind, in manifest order
// (sorted by key).
func (r *Reader) Keys(kind assets.Kind) []assets.Key {
	return r.manifest.Keys(kind)
}

// Entry exposes the manifest entry for a key: its BlobId and the
// light metadata stored alongside (bitmap dimensions, mesh part
// count) that answer size queries without touching the payload.
func (r *Reader) Entry(kind assets.Kind, key assets.Key) (container.Entry, error) {
	entry, ok := r.manifest.Lookup(kind, key)
	if !ok {
		return container.Entry{}, fmt.Errorf("%w: no %s under %s", ErrUnknownKey, kind, key)
	}
	return entry, nil
}

// blobBytes reads and decompresses one blob. BlobIds are 1-based;
// blob table indexes are 0-based.
func (r *Reader) blobBytes(id assets.BlobId) ([]byte, error) {
	if id == assets.NoBlob {
		return nil, fmt.Errorf("%w: nil blob reference", container.ErrCorrupt)
	}
	index := int(id) - 1

	r.mu.Lock()
	compressed, err := r.envelope.ReadBlob(r.source, index)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entry := r.envelope.Blobs[index]
	kind := codec.Kind(entry.Codec)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: blob %d has unknown codec %d", container.ErrCorrupt, id, entry.Codec)
	}
	data, err := codec.Decompress(kind, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: blob %d: %v", container.ErrCorrupt, id, err)
	}
	return data, nil
}

func readEntity[T any, PT interface {
	*T
	UnmarshalBinary([]byte) error
}](r *Reader, kind assets.Kind, key assets.Key) (*T, error) {
	entry, err := r.Entry(kind, key)
	if err != nil {
		return nil, err
	}
	return readEntityBlob[T, PT](r, entry.BlobId)
}

func readEntityBlob[T any, PT interface {
	*T
	UnmarshalBinary([]byte) error
}](r *Reader, id assets.BlobId) (*T, error) {
	data, err := r.blobBytes(id)
	if err != nil {
		return nil, err
	}
	entity := PT(new(T))
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", container.ErrCorrupt, err)
	}
	return (*T)(entity), nil
}

// ReadBitmap decodes the bitmap stored under key.
func (r *Reader) ReadBitmap(key assets.Key) (*assets.Bitmap, error) {
	return readEntity[assets.Bitmap](r, assets.KindBitmap, key)
}

// ReadBitmapFont decodes the bitmap font stored under key.
func (r *Reader) ReadBitmapFont(key assets.Key) (*assets.BitmapFont, error) {
	return readEntity[assets.BitmapFont](r, assets.KindBitmapFont, key)
}

// ReadMesh decodes the mesh stored under key.
func (r *Reader) ReadMesh(key assets.Key) (*assets.Mesh, error) {
	return readEntity[assets.Mesh](r, assets.KindMesh, key)
}

// ReadAnimation decodes the animation stored under key.
func (r *Reader) ReadAnimation(key assets.Key) (*assets.Animation, error) {
	return readEntity[assets.Animation](r, assets.KindAnimation, key)
}

// ReadMaterial decodes the material stored under key.
func (r *Reader) ReadMaterial(key assets.Key) (*assets.Material, error) {
	return readEntity[assets.Material](r, assets.KindMaterial, key)
}

// ReadModel decodes the model stored under key.
func (r *Reader) ReadModel(key assets.Key) (*assets.Model, error) {
	return readEntity[assets.Model](r, assets.KindModel, key)
}

// ReadScene decodes the scene stored under key.
func (r *Reader) ReadScene(key assets.Key) (*assets.Scene, error) {
	return readEntity[assets.Scene](r, assets.KindScene, key)
}

// ReadBitmapBlob decodes a bitmap by BlobId, for traversing
// references embedded in materials and fonts.
func (r *Reader) ReadBitmapBlob(id assets.BlobId) (*assets.Bitmap, error) {
	return readEntityBlob[assets.Bitmap](r, id)
}

// ReadMeshBlob decodes a mesh by BlobId, for traversing references
// embedded in models and scenes.
func (r *Reader) ReadMeshBlob(id assets.BlobId) (*assets.Mesh, error) {
	return readEntityBlob[assets.Mesh](r, id)
}

// ReadMaterialBlob decodes a material by BlobId, for traversing
// references embedded in models and scenes.
func (r *Reader) ReadMaterialBlob(id assets.BlobId) (*assets.Material, error) {
	return readEntityBlob[assets.Material](r, id)
}

// BitmapInfo returns a bitmap's dimensions, channel count and mip
// count from the manifest alone, without decompressing its payload.
func (r *Reader) BitmapInfo(key assets.Key) (width, height uint32, channels uint8, mipLevels uint32, err error) {
	entry, err := r.Entry(assets.KindBitmap, key)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	meta := entry.Metadata
	return meta.Width, meta.Height, meta.Channels, meta.MipLevels, nil
}

// RawBlob returns the decompressed canonical bytes of the blob an
// entry points at. Inspection tooling uses this; typed consumers use
// the ReadX lookups.
func (r *Reader) RawBlob(kind assets.Kind, key assets.Key) ([]byte, error) {
	entry, err := r.Entry(kind, key)
	if err != nil {
		return nil, err
	}
	return r.blobBytes(entry.BlobId)
}
