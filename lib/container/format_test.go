// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bytes"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	manifest := []byte("fake compressed manifest bytes")
	blobs := []BlobEntry{
		{Offset: 0, Length: 5, Codec: 0},
		{Offset: 5, Length: 3, Codec: 2},
	}
	payload := []byte("helloabc")

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, manifest, 123, blobs, bytes.NewReader(payload)); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	reader := bytes.NewReader(buf.Bytes())
	env, err := ReadEnvelope(reader)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}

	if !bytes.Equal(env.ManifestCompressed, manifest) {
		t.Fatalf("manifest mismatch: got %q", env.ManifestCompressed)
	}
	if env.ManifestUncompressedLen != 123 {
		t.Fatalf("manifest uncompressed length mismatch: got %d", env.ManifestUncompressedLen)
	}
	if len(env.Blobs) != 2 {
		t.Fatalf("blob count mismatch: got %d", len(env.Blobs))
	}

	first, err := env.ReadBlob(reader, 0)
	if err != nil {
		t.Fatalf("ReadBlob(0): %v", err)
	}
	if string(first) != "hello" {
		t.Fatalf("blob 0 mismatch: got %q", first)
	}

	second, err := env.ReadBlob(reader, 1)
	if err != nil {
		t.Fatalf("ReadBlob(1): %v", err)
	}
	if string(second) != "abc" {
		t.Fatalf("blob 1 mismatch: got %q", second)
	}
}

func TestReadEnvelopeRejectsBadMagic(t *testing.T) {
	data := []byte{'X', 'X', 'X', 'X', 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := ReadEnvelope(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadEnvelopeRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.Write([]byte{99, 0}) // version 99, little-endian u16
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})
	if _, err := ReadEnvelope(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestReadEnvelopeRejectsTruncatedArchive(t *testing.T) {
	data := []byte{'P', 'A', 'K', '0', 1, 0}
	if _, err := ReadEnvelope(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for truncated archive")
	}
}
