// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"
	"math"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/bitmapsource"
	"github.com/pak-forge/pak/lib/content"
)

// floatImage is the bitmap pipeline's working representation: float32
// texels in linear light, four channels wide until the swizzle step
// narrows it. gamma[c] records whether channel c re-encodes to sRGB
// when quantized back to bytes (alpha never does).
type floatImage struct {
	width, height int
	channels      int
	pix           []float32
	gamma         []bool
}

// BakeBitmap runs the bitmap pipeline (resize, swizzle, color-space
// tag, mip generation) over decoded source image bytes.
func BakeBitmap(desc *content.Bitmap, srcData []byte) (*assets.Bitmap, error) {
	img, err := bitmapsource.Decode(srcData)
	if err != nil {
		return nil, err
	}
	return bakeBitmapPixels(desc, img)
}

func bakeBitmapPixels(desc *content.Bitmap, img *bitmapsource.Image) (*assets.Bitmap, error) {
	srgb := desc.SRGB()
	work := toFloatImage(img, srgb)

	if desc.Resize > 0 {
		work = resizeToFit(work, int(desc.Resize))
	}

	if desc.Swizzle != "" {
		work = swizzle(work, desc.Swizzle)
	}

	mipCount := resolveMipCount(desc.Mips, work.width, work.height)

	baked := &assets.Bitmap{
		Width:     uint32(work.width),
		Height:    uint32(work.height),
		Channels:  uint8(work.channels),
		MipLevels: uint32(mipCount),
	}
	if srgb {
		baked.ColorSpace = assets.ColorSpaceSRGB
	}

	baked.PixelData = make([]byte, 0, baked.ExpectedPixelDataLen())
	level := work
	for i := 0; i < mipCount; i++ {
		if i > 0 {
			nextW := maxInt(1, level.width/2)
			nextH := maxInt(1, level.height/2)
			level = areaResize(level, nextW, nextH)
		}
		baked.PixelData = append(baked.PixelData, quantize(level)...)
	}

	if err := baked.Validate(); err != nil {
		return nil, fmt.Errorf("bake: bitmap: %w", err)
	}
	return baked, nil
}

// resolveMipCount clamps the requested mip levels to the full chain
// length 1 + floor(log2(max(w, h))).
func resolveMipCount(mips content.MipLevels, width, height int) int {
	full := 1
	for d := maxInt(width, height); d > 1; d /= 2 {
		full++
	}
	if mips.FullChain {
		return full
	}
	return minInt(int(mips.Count), full)
}

// toFloatImage converts decoded RGBA bytes into linear float texels.
// For sRGB-tagged bitmaps the color channels pass through the sRGB
// EOTF; alpha is always linear.
func toFloatImage(img *bitmapsource.Image, srgb bool) floatImage {
	out := floatImage{
		width:    img.Width,
		height:   img.Height,
		channels: 4,
		pix:      make([]float32, img.Width*img.Height*4),
		gamma:    []bool{srgb, srgb, srgb, false},
	}
	for i, b := range img.Pixels {
		if out.gamma[i%4] {
			out.pix[i] = srgbToLinear(b)
		} else {
			out.pix[i] = float32(b) / 255
		}
	}
	return out
}

// quantize converts linear float texels back to bytes, re-encoding
// gamma channels to sRGB.
func quantize(img floatImage) []byte {
	out := make([]byte, len(img.pix))
	for i, v := range img.pix {
		if img.gamma[i%img.channels] {
			out[i] = linearToSRGB(v)
		} else {
			out[i] = quantizeByte(v)
		}
	}
	return out
}

// resizeToFit uniformly scales the image so max(width, height) <= fit.
// Already-fitting images pass through untouched; the rule never
// upscales.
func resizeToFit(img floatImage, fit int) floatImage {
	largest := maxInt(img.width, img.height)
	if largest <= fit {
		return img
	}
	scale := float64(fit) / float64(largest)
	newW := maxInt(1, int(math.Round(float64(img.width)*scale)))
	newH := maxInt(1, int(math.Round(float64(img.height)*scale)))
	return areaResize(img, newW, newH)
}

// areaResize resamples to the target dimensions with an area-average
// (box coverage) filter in linear space. With exact 2:1 ratios this
// degenerates to the classic 2x2 box filter used for mip steps; odd
// dimensions split the fractional texel by coverage.
func areaResize(img floatImage, newW, newH int) floatImage {
	out := floatImage{
		width:    newW,
		height:   newH,
		channels: img.channels,
		pix:      make([]float32, newW*newH*img.channels),
		gamma:    img.gamma,
	}
	scaleX := float64(img.width) / float64(newW)
	scaleY := float64(img.height) / float64(newH)
	acc := make([]float64, img.channels)

	for oy := 0; oy < newH; oy++ {
		y0 := float64(oy) * scaleY
		y1 := float64(oy+1) * scaleY
		for ox := 0; ox < newW; ox++ {
			x0 := float64(ox) * scaleX
			x1 := float64(ox+1) * scaleX

			for c := range acc {
				acc[c] = 0
			}
			total := 0.0
			for sy := int(y0); sy < int(math.Ceil(y1)); sy++ {
				coverY := math.Min(y1, float64(sy+1)) - math.Max(y0, float64(sy))
				if coverY <= 0 {
					continue
				}
				for sx := int(x0); sx < int(math.Ceil(x1)); sx++ {
					coverX := math.Min(x1, float64(sx+1)) - math.Max(x0, float64(sx))
					if coverX <= 0 {
						continue
					}
					weight := coverX * coverY
					offset := (sy*img.width + sx) * img.channels
					for c := 0; c < img.channels; c++ {
						acc[c] += float64(img.pix[offset+c]) * weight
					}
					total += weight
				}
			}
			offset := (oy*newW + ox) * img.channels
			for c := 0; c < img.channels; c++ {
				out.pix[offset+c] = float32(acc[c] / total)
			}
		}
	}
	return out
}

// swizzle remaps channels by an [rgba]{1,4} mapping string; the
// output channel count equals the mapping length.
func swizzle(img floatImage, mapping string) floatImage {
	sources := make([]int, len(mapping))
	for i := 0; i < len(mapping); i++ {
		switch mapping[i] {
		case 'r':
			sources[i] = 0
		case 'g':
			sources[i] = 1
		case 'b':
			sources[i] = 2
		case 'a':
			sources[i] = 3
		}
	}
	out := floatImage{
		width:    img.width,
		height:   img.height,
		channels: len(sources),
		pix:      make([]float32, img.width*img.height*len(sources)),
		gamma:    make([]bool, len(sources)),
	}
	for i, src := range sources {
		out.gamma[i] = img.gamma[src]
	}
	texels := img.width * img.height
	for t := 0; t < texels; t++ {
		srcOffset := t * img.channels
		dstOffset := t * out.channels
		for i, src := range sources {
			out.pix[dstOffset+i] = img.pix[srcOffset+src]
		}
	}
	return out
}

// srgbToLinear applies the sRGB EOTF to one encoded byte.
func srgbToLinear(b uint8) float32 {
	v := float64(b) / 255
	if v <= 0.04045 {
		return float32(v / 12.92)
	}
	return float32(math.Pow((v+0.055)/1.055, 2.4))
}

// linearToSRGB encodes one linear value back to an sRGB byte.
func linearToSRGB(v float32) uint8 {
	f := float64(v)
	if f <= 0 {
		return 0
	}
	var encoded float64
	if f <= 0.0031308 {
		encoded = f * 12.92
	} else {
		encoded = 1.055*math.Pow(f, 1/2.4) - 0.055
	}
	return quantizeByte(float32(encoded))
}

func quantizeByte(v float32) uint8 {
	scaled := math.Round(float64(v) * 255)
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
