// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/bitmapsource"
	"github.com/pak-forge/pak/lib/content"
)

// solidImage builds a decoded source image filled with one RGBA value.
func solidImage(width, height int, rgba [4]uint8) *bitmapsource.Image {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:], rgba[:])
	}
	return &bitmapsource.Image{Width: width, Height: height, Pixels: pixels}
}

func encodePNG(t *testing.T, img *bitmapsource.Image) []byte {
	t.Helper()
	nrgba := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(nrgba.Pix, img.Pixels)
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBakeBitmapFullMipChain(t *testing.T) {
	desc := &content.Bitmap{Mips: content.MipLevels{FullChain: true}}
	baked, err := BakeBitmap(desc, encodePNG(t, solidImage(4, 4, [4]uint8{10, 20, 30, 255})))
	if err != nil {
		t.Fatal(err)
	}
	if baked.MipLevels != 3 {
		t.Errorf("mip levels = %d, want 3", baked.MipLevels)
	}
	if want := (16 + 4 + 1) * 4; len(baked.PixelData) != want {
		t.Errorf("pixel data = %d bytes, want %d", len(baked.PixelData), want)
	}
	w, h := assets.MipSize(baked.Width, baked.Height, 2)
	if w != 1 || h != 1 {
		t.Errorf("last mip = %dx%d", w, h)
	}
}

func TestBakeBitmapSolidColorSurvivesMipping(t *testing.T) {
	// A constant image must stay constant through the gamma-aware
	// filter: sRGB decode/encode round trips exactly on solid input.
	src := solidImage(8, 8, [4]uint8{200, 100, 50, 128})
	desc := &content.Bitmap{ColorSpace: "srgb", Mips: content.MipLevels{FullChain: true}}
	baked, err := bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.ColorSpace != assets.ColorSpaceSRGB {
		t.Errorf("color space = %v", baked.ColorSpace)
	}
	for i := 0; i < len(baked.PixelData); i += 4 {
		got := [4]uint8{baked.PixelData[i], baked.PixelData[i+1], baked.PixelData[i+2], baked.PixelData[i+3]}
		if got != [4]uint8{200, 100, 50, 128} {
			t.Fatalf("texel %d = %v", i/4, got)
		}
	}
}

func TestBakeBitmapMipCountCap(t *testing.T) {
	src := solidImage(16, 16, [4]uint8{1, 2, 3, 4})
	desc := &content.Bitmap{Mips: content.MipLevels{Count: 2}}
	baked, err := bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.MipLevels != 2 {
		t.Errorf("mip levels = %d, want 2", baked.MipLevels)
	}

	// Requesting more levels than the chain has clamps to the chain.
	desc = &content.Bitmap{Mips: content.MipLevels{Count: 99}}
	baked, err = bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.MipLevels != 5 {
		t.Errorf("mip levels = %d, want 5 for 16x16", baked.MipLevels)
	}
}

func TestBakeBitmapSwizzle(t *testing.T) {
	src := solidImage(2, 2, [4]uint8{10, 20, 30, 40})
	desc := &content.Bitmap{ColorSpace: "linear", Swizzle: "ar", Mips: content.MipLevels{Count: 1}}
	baked, err := bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.Channels != 2 {
		t.Fatalf("channels = %d, want 2", baked.Channels)
	}
	if baked.PixelData[0] != 40 || baked.PixelData[1] != 10 {
		t.Errorf("texel 0 = [%d %d], want [40 10]", baked.PixelData[0], baked.PixelData[1])
	}
}

func TestBakeBitmapResizeToFit(t *testing.T) {
	src := solidImage(8, 4, [4]uint8{7, 7, 7, 255})
	desc := &content.Bitmap{ColorSpace: "linear", Resize: 4, Mips: content.MipLevels{Count: 1}}
	baked, err := bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.Width != 4 || baked.Height != 2 {
		t.Errorf("resized to %dx%d, want 4x2", baked.Width, baked.Height)
	}

	// A source already under the limit passes through untouched.
	desc = &content.Bitmap{ColorSpace: "linear", Resize: 16, Mips: content.MipLevels{Count: 1}}
	baked, err = bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.Width != 8 || baked.Height != 4 {
		t.Errorf("resize enlarged to %dx%d", baked.Width, baked.Height)
	}
}

func TestBakeBitmapNonSquareMipFloor(t *testing.T) {
	// 8x2: mips are 8x2, 4x1, 2x1, 1x1 — the collapsed dimension
	// holds at 1 while the other keeps halving.
	src := solidImage(8, 2, [4]uint8{1, 1, 1, 1})
	desc := &content.Bitmap{ColorSpace: "linear", Mips: content.MipLevels{FullChain: true}}
	baked, err := bakeBitmapPixels(desc, src)
	if err != nil {
		t.Fatal(err)
	}
	if baked.MipLevels != 4 {
		t.Fatalf("mip levels = %d, want 4", baked.MipLevels)
	}
	if want := (16 + 4 + 2 + 1) * 4; len(baked.PixelData) != want {
		t.Errorf("pixel data = %d, want %d", len(baked.PixelData), want)
	}
}

func TestAreaResizeAverages(t *testing.T) {
	// 2x1 linear image with values 0 and 1 averages to 0.5.
	img := floatImage{
		width: 2, height: 1, channels: 1,
		pix:   []float32{0, 1},
		gamma: []bool{false},
	}
	out := areaResize(img, 1, 1)
	if out.pix[0] != 0.5 {
		t.Errorf("average = %v, want 0.5", out.pix[0])
	}
}
