// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package writer

import (
	"encoding"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake"
	"github.com/pak-forge/pak/lib/bakecache"
	"github.com/pak-forge/pak/lib/container"
	"github.com/pak-forge/pak/lib/resolver"
)

// Event is one structured progress notification from a bake run.
// Either a start (Done false) or a completion (Done true, Err set on
// failure) for one asset.
type Event struct {
	Key   assets.Key
	Kind  assets.Kind
	Index int
	Total int
	Done  bool
	Err   error
}

// Options configures a bake run.
type Options struct {
	// Workers caps the bake worker pool; 0 uses GOMAXPROCS.
	Workers int

	// Progress receives terse per-asset progress lines. Nil is silent.
	Progress io.Writer

	// OnEvent receives structured progress events, called from the
	// coordinator goroutine only. Nil disables events.
	OnEvent func(Event)

	// Cache optionally memoizes baked bytes for source-backed,
	// dependency-free asset kinds across runs.
	Cache *bakecache.Cache
}

// future carries one asset's committed BlobId and baked entity to the
// bake tasks of its referers. done is closed by the coordinator after
// commit; ok is false when the asset failed to bake.
type future struct {
	done   chan struct{}
	id     assets.BlobId
	entity any
	ok     bool
}

// Bake resolves the content document at contentPath, bakes every
// asset, and writes the archive to outputPath. Source-heavy bakes run
// on a parallel worker pool; commits happen on the calling goroutine
// in resolver order, so BlobId assignment, dedup and the output byte
// stream are deterministic. On failure the output file is never
// created or replaced.
func Bake(contentPath, outputPath string, options Options) error {
	resolved, err := resolver.Resolve(contentPath)
	if err != nil {
		return err
	}
	return bakeResolved(resolved, outputPath, options)
}

func bakeResolved(resolved *resolver.Resolved, outputPath string, options Options) error {
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	items := resolved.Items
	total := len(items)

	futures := make(map[assets.Key]*future, total)
	for _, item := range items {
		futures[item.Key] = &future{done: make(chan struct{})}
	}

	type result struct {
		entity any
		err    error
	}
	results := make([]chan result, total)
	for i := range results {
		results[i] = make(chan result, 1)
	}

	// Dispatch in resolver order. Referents always precede referers in
	// the queue, so a task blocked on a dependency future never starves
	// the worker that would resolve it.
	queue := make(chan int)
	go func() {
		for i := range items {
			queue <- i
		}
		close(queue)
	}()
	for w := 0; w < workers; w++ {
		go func() {
			for i := range queue {
				entity, err := bakeItem(items[i], futures, options.Cache)
				results[i] <- result{entity: entity, err: err}
			}
		}()
	}

	writer := New(resolved.Compression)
	var firstErr error
	for i, item := range items {
		if options.OnEvent != nil {
			options.OnEvent(Event{Key: item.Key, Kind: item.Kind, Index: i, Total: total})
		}
		res := <-results[i]
		fut := futures[item.Key]

		err := res.err
		if err == nil && firstErr == nil {
			err = commit(writer, item, res.entity, fut)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("baking %s: %w", item.Key, err)
		}
		if err != nil && options.Progress != nil {
			fmt.Fprintf(options.Progress, "[bake] %d/%d %s %s: error: %v\n", i+1, total, item.Kind, item.Key, err)
		} else if options.Progress != nil {
			fmt.Fprintf(options.Progress, "[bake] %d/%d %s %s\n", i+1, total, item.Kind, item.Key)
		}
		if options.OnEvent != nil {
			options.OnEvent(Event{Key: item.Key, Kind: item.Kind, Index: i, Total: total, Done: true, Err: err})
		}
		// Resolve the future either way so dependent tasks unblock;
		// their results are discarded once firstErr is set.
		close(fut.done)
	}

	if firstErr != nil {
		return firstErr
	}
	return writer.WriteFile(outputPath)
}

// commit serializes the baked entity, assigns its BlobId (shared when
// content-identical with an earlier blob) and records the manifest
// row. Runs only on the coordinator goroutine.
func commit(writer *Writer, item *resolver.Item, entity any, fut *future) error {
	marshaler, ok := entity.(encoding.BinaryMarshaler)
	if !ok {
		return fmt.Errorf("internal: baked entity %T is not binary-marshalable", entity)
	}
	id, err := writer.AddBlob(marshaler)
	if err != nil {
		return err
	}
	entry := container.Entry{BlobId: id, Metadata: entryMetadata(entity)}
	if err := writer.AddManifestEntry(item.Kind, item.Key, entry); err != nil {
		return err
	}
	fut.id = id
	fut.entity = entity
	fut.ok = true
	return nil
}

// entryMetadata extracts the light per-kind metadata carried in the
// manifest so readers can answer size queries without decompressing.
func entryMetadata(entity any) container.EntryMetadata {
	var meta container.EntryMetadata
	switch e := entity.(type) {
	case *assets.Bitmap:
		meta.Width = e.Width
		meta.Height = e.Height
		meta.Channels = e.Channels
		meta.MipLevels = e.MipLevels
	case *assets.BitmapFont:
		meta.PageCount = uint32(len(e.Pages))
	case *assets.Mesh:
		meta.PartCount = uint32(len(e.Parts))
		meta.JointCount = uint32(len(e.Joints))
	case *assets.Animation:
		meta.Duration = e.Duration
	}
	return meta
}

// bakeItem runs one asset's bake task. Dependency lookups block until
// the coordinator commits the referent, which the resolver's
// topological ordering guarantees happens without deadlock.
func bakeItem(item *resolver.Item, futures map[assets.Key]*future, cache *bakecache.Cache) (any, error) {
	deps := func(name string) (assets.BlobId, bool) {
		key, ok := item.Deps[name]
		if !ok {
			return assets.NoBlob, false
		}
		fut, ok := futures[key]
		if !ok {
			return assets.NoBlob, false
		}
		<-fut.done
		if !fut.ok {
			return assets.NoBlob, false
		}
		return fut.id, true
	}
	partCount := func(name string) (int, bool) {
		key, ok := item.Deps[name]
		if !ok {
			return 0, false
		}
		fut, ok := futures[key]
		if !ok {
			return 0, false
		}
		<-fut.done
		mesh, isMesh := fut.entity.(*assets.Mesh)
		if !fut.ok || !isMesh {
			return 0, false
		}
		return len(mesh.Parts), true
	}

	if cached, ok := cacheGet(cache, item); ok {
		return cached, nil
	}

	entity, err := bakeEntity(item, deps, partCount)
	if err != nil {
		return nil, err
	}
	cachePut(cache, item, entity)
	return entity, nil
}

func bakeEntity(item *resolver.Item, deps bake.DepLookup, partCount bake.PartCountLookup) (any, error) {
	switch item.Kind {
	case assets.KindBitmap:
		data, err := os.ReadFile(item.SrcPath)
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		return bake.BakeBitmap(item.Doc.Bitmap, data)
	case assets.KindBitmapFont:
		data, err := os.ReadFile(item.SrcPath)
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		return bake.BakeBitmapFont(data, deps)
	case assets.KindMesh:
		return bake.BakeMesh(item.Doc.Mesh, item.SrcPath)
	case assets.KindAnimation:
		return bake.BakeAnimation(item.Doc.Animation, item.SrcPath)
	case assets.KindMaterial:
		return bake.BakeMaterial(item.Doc.Material, deps)
	case assets.KindModel:
		return bake.BakeModel(item.Doc.Model, deps, partCount)
	case assets.KindScene:
		return bake.BakeScene(item.Doc.Scene, deps)
	default:
		return nil, fmt.Errorf("internal: unhandled asset kind %s", item.Kind)
	}
}
