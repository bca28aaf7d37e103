// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package fontsource

import (
	"strings"
	"testing"
)

func TestParsePages(t *testing.T) {
	info, err := Parse([]byte(`info face="Deja Vu" size=32 bold=0
common lineHeight=36 base=29 scaleW=256 scaleH=256 pages=2
page id=1 file="font_1.png"
page id=0 file="font_0.png"
chars count=1
char id=65 x=0 y=0 width=20 height=24 xoffset=0 yoffset=4 xadvance=21 page=0 chnl=15
`))
	if err != nil {
		t.Fatal(err)
	}
	if info.Face != "Deja Vu" {
		t.Errorf("face = %q", info.Face)
	}
	// Pages come back in id order regardless of file order.
	if len(info.Pages) != 2 || info.Pages[0] != "font_0.png" || info.Pages[1] != "font_1.png" {
		t.Errorf("pages = %v", info.Pages)
	}
}

func TestParseRejectsBinary(t *testing.T) {
	_, err := Parse([]byte("BMF\x03rest"))
	if err == nil || !strings.Contains(err.Error(), "binary") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRejectsNonFont(t *testing.T) {
	if _, err := Parse([]byte("just some text\n")); err == nil {
		t.Fatal("plain text should not parse")
	}
}

func TestParseMissingPageId(t *testing.T) {
	_, err := Parse([]byte("info face=\"x\"\npage id=1 file=\"a.png\"\n"))
	if err == nil || !strings.Contains(err.Error(), "contiguous") {
		t.Fatalf("err = %v", err)
	}
}
