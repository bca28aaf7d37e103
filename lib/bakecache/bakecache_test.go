// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bakecache

import (
	"bytes"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := [32]byte{1, 2, 3}
	payload := bytes.Repeat([]byte("baked entity bytes "), 100)

	if _, ok := cache.Get(fingerprint); ok {
		t.Fatal("hit before put")
	}
	if err := cache.Put(fingerprint, payload); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.Get(fingerprint)
	if !ok {
		t.Fatal("miss after put")
	}
	if !bytes.Equal(got, payload) {
		t.Error("round trip mismatch")
	}

	// A different fingerprint still misses.
	if _, ok := cache.Get([32]byte{9}); ok {
		t.Error("unexpected hit")
	}
}

func TestClear(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := [32]byte{7}
	if err := cache.Put(fingerprint, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(fingerprint); ok {
		t.Error("hit after clear")
	}
}

func TestReopenSeesEntries(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := [32]byte{42}
	if err := cache.Put(fingerprint, []byte("persisted")); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Get(fingerprint)
	if !ok || string(got) != "persisted" {
		t.Errorf("reopened get = %q, %v", got, ok)
	}
}
