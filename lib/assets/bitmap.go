// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import "fmt"

// ColorSpace tags a Bitmap's pixel data as linear or sRGB-encoded.
// Purely metadata (§4.5 step 3): it does not transform pixels.
type ColorSpace uint8

const (
	ColorSpaceLinear ColorSpace = 0
	ColorSpaceSRGB   ColorSpace = 1
)

func (c ColorSpace) String() string {
	if c == ColorSpaceSRGB {
		return "srgb"
	}
	return "linear"
}

// Bitmap is the baked, canonical form of an image asset (§3.2).
// PixelData is every mip level concatenated tightly, largest first;
// mip i has dimensions max(1, Width>>i) x max(1, Height>>i) and
// occupies that many texels * Channels bytes (one byte per channel;
// the format does not support higher bit depths).
type Bitmap struct {
	Width      uint32
	Height     uint32
	ColorSpace ColorSpace
	Channels   uint8 // 1-4
	MipLevels  uint32
	PixelData  []byte
}

// MipSize returns the width and height of mip level i (0 = full
// size), per §3.3's "mip i+1 dimensions are max(1, floor(dim_i/2))".
func MipSize(width, height, level uint32) (uint32, uint32) {
	w, h := width, height
	for i := uint32(0); i < level; i++ {
		w = maxu32(1, w/2)
		h = maxu32(1, h/2)
	}
	return w, h
}

func maxu32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// ExpectedPixelDataLen returns the pixel-data length the bitmap
// invariant (§3.3) requires: the sum over mip levels of
// width_i * height_i * channels.
func (b *Bitmap) ExpectedPixelDataLen() int {
	total := 0
	for level := uint32(0); level < b.MipLevels; level++ {
		w, h := MipSize(b.Width, b.Height, level)
		total += int(w) * int(h) * int(b.Channels)
	}
	return total
}

// Validate checks the bitmap invariants from §3.3.
func (b *Bitmap) Validate() error {
	if b.Channels < 1 || b.Channels > 4 {
		return fmt.Errorf("bitmap: channel count %d out of range [1,4]", b.Channels)
	}
	if b.MipLevels == 0 {
		return fmt.Errorf("bitmap: mip level count must be >= 1")
	}
	if want := b.ExpectedPixelDataLen(); len(b.PixelData) != want {
		return fmt.Errorf("bitmap: pixel data length %d does not match expected %d for %dx%d, %d channels, %d mips",
			len(b.PixelData), want, b.Width, b.Height, b.Channels, b.MipLevels)
	}
	return nil
}

// MarshalBinary encodes the bitmap in the archive's canonical
// deterministic layout (§4.8): fixed field order, little-endian
// integers, a single length-prefixed tail for pixel data (the
// pixel-data length is otherwise implied by the header fields, but a
// prefix keeps decode bounds-checked without recomputing the mip
// chain first).
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	e := newEncoder()
	e.u32(b.Width)
	e.u32(b.Height)
	e.u8(uint8(b.ColorSpace))
	e.u8(b.Channels)
	e.u32(b.MipLevels)
	e.lenBytes(b.PixelData)
	return e.bytes(), nil
}

// UnmarshalBinary decodes a bitmap previously encoded by MarshalBinary.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	var err error
	if b.Width, err = d.u32(); err != nil {
		return fmt.Errorf("assets: decoding bitmap width: %w", err)
	}
	if b.Height, err = d.u32(); err != nil {
		return fmt.Errorf("assets: decoding bitmap height: %w", err)
	}
	colorSpace, err := d.u8()
	if err != nil {
		return fmt.Errorf("assets: decoding bitmap color space: %w", err)
	}
	b.ColorSpace = ColorSpace(colorSpace)
	if b.Channels, err = d.u8(); err != nil {
		return fmt.Errorf("assets: decoding bitmap channels: %w", err)
	}
	if b.MipLevels, err = d.u32(); err != nil {
		return fmt.Errorf("assets: decoding bitmap mip levels: %w", err)
	}
	if b.PixelData, err = d.lenBytes(); err != nil {
		return fmt.Errorf("assets: decoding bitmap pixel data: %w", err)
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after bitmap encoding")
	}
	return b.Validate()
}

// BitmapFont is the baked form of an AngelCode bitmap font (§3.2):
// the raw definition bytes are kept verbatim (the format is a simple
// text/binary descriptor the runtime parses itself) alongside the
// ordered list of page bitmaps it references.
type BitmapFont struct {
	Definition []byte
	Pages      []BlobId
}

func (f *BitmapFont) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.lenBytes(f.Definition)
	e.u32(uint32(len(f.Pages)))
	for _, p := range f.Pages {
		e.u32(uint32(p))
	}
	return e.bytes(), nil
}

func (f *BitmapFont) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	var err error
	if f.Definition, err = d.lenBytes(); err != nil {
		return fmt.Errorf("assets: decoding bitmap font definition: %w", err)
	}
	count, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding bitmap font page count: %w", err)
	}
	f.Pages = make([]BlobId, count)
	for i := range f.Pages {
		v, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding bitmap font page %d: %w", i, err)
		}
		f.Pages[i] = BlobId(v)
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after bitmap font encoding")
	}
	return nil
}
