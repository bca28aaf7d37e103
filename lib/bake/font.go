// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/fontsource"
)

// BakeBitmapFont stores the AngelCode definition bytes verbatim and
// binds the ordered page bitmaps, which the resolver enlisted as
// page0, page1, ... dependencies.
func BakeBitmapFont(srcData []byte, deps DepLookup) (*assets.BitmapFont, error) {
	info, err := fontsource.Parse(srcData)
	if err != nil {
		return nil, err
	}
	baked := &assets.BitmapFont{Definition: srcData}
	for pageIndex := range info.Pages {
		blob, ok := deps(fmt.Sprintf("page%d", pageIndex))
		if !ok {
			return nil, fmt.Errorf("bake: font page %d: dependency was not baked", pageIndex)
		}
		baked.Pages = append(baked.Pages, blob)
	}
	return baked, nil
}
