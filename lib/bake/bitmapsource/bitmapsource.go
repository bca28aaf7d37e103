// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package bitmapsource decodes image source files into a uniform
// 8-bit RGBA pixel buffer for the bitmap bake pipeline. PNG, JPEG and
// GIF decode through the standard library; BMP, TIFF and WebP through
// golang.org/x/image. The pipeline downstream swizzles channels and
// drops unused ones, so decoding always to four channels costs only
// transient memory.
package bitmapsource

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded source image: tightly packed RGBA, four bytes
// per texel, no row padding.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// Decode decodes image bytes in any registered format into an RGBA
// buffer. Alpha is not premultiplied; sources without an alpha
// channel decode with alpha 0xff.
func Decode(data []byte) (*Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bitmapsource: decoding image: %w", err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("bitmapsource: %s image has zero dimension %dx%d", format, width, height)
	}

	nrgba, ok := src.(*image.NRGBA)
	if !ok || bounds.Min != (image.Point{}) {
		converted := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.Draw(converted, converted.Bounds(), src, bounds.Min, draw.Src)
		nrgba = converted
	}

	pixels := nrgba.Pix
	if nrgba.Stride != width*4 {
		packed := make([]byte, width*height*4)
		for y := 0; y < height; y++ {
			copy(packed[y*width*4:(y+1)*width*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+width*4])
		}
		pixels = packed
	}

	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

// At returns the RGBA texel at (x, y).
func (img *Image) At(x, y int) [4]uint8 {
	offset := (y*img.Width + x) * 4
	return [4]uint8{img.Pixels[offset], img.Pixels[offset+1], img.Pixels[offset+2], img.Pixels[offset+3]}
}
