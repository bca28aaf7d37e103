// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// encoder accumulates a canonical little-endian byte encoding of a
// single baked entity. Every asset kind's MarshalBinary method uses
// one of these instead of hand-rolling byte slices, the way
// lib/artifact/container.go in the teacher repo writes its container
// header field by field.
type encoder struct {
	buf []byte
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) f32(v float32) {
	e.u32(math.Float32bits(v))
}
func (e *encoder) bytesRaw(b []byte) { e.buf = append(e.buf, b...) }

// lenBytes writes a length-prefixed ([u32 length][bytes]) blob.
func (e *encoder) lenBytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// str writes a length-prefixed UTF-8 string.
func (e *encoder) str(s string) {
	e.lenBytes([]byte(s))
}

func (e *encoder) bytes() []byte { return e.buf }

// decoder reads back a canonical little-endian encoding produced by
// encoder. Every read method advances an internal cursor and returns
// an error instead of panicking on truncated input (§7 "Corrupt").
type decoder struct {
	buf []byte
	pos int
}

func newDecoder(b []byte) *decoder { return &decoder{buf: b} }

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return fmt.Errorf("assets: truncated encoding (need %d bytes at offset %d, have %d)", n, d.pos, len(d.buf))
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) f32() (float32, error) {
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (d *decoder) lenBytes() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	v := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return v, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.lenBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// done reports whether the decoder has consumed the entire buffer.
// MarshalBinary/UnmarshalBinary round trips call this to catch
// trailing garbage, which would otherwise silently hide corruption.
func (d *decoder) done() bool { return d.pos == len(d.buf) }

// readAll reads all remaining bytes as one tail buffer with no length
// prefix. No current encoding calls it: the bitmap and mesh encodings
// length-prefix their pixel, index and vertex buffers.
func (d *decoder) readAll() []byte {
	v := d.buf[d.pos:]
	d.pos = len(d.buf)
	return v
}

// writeAll appends a tail buffer with no length prefix (paired with
// readAll).
func (e *encoder) writeAll(b []byte) { e.buf = append(e.buf, b...) }

var _ io.Writer = (*encoderWriter)(nil)

// encoderWriter adapts encoder to io.Writer, appending each write
// with bytesRaw (no length prefix). No code in the module uses it.
type encoderWriter struct{ e *encoder }

func (w encoderWriter) Write(p []byte) (int, error) {
	w.e.bytesRaw(p)
	return len(p), nil
}
