// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package fontsource reads AngelCode BMFont definitions. The baked
// font keeps the definition bytes verbatim; this package only
// extracts the structure the pipeline needs: the ordered page image
// file names, and enough validation to reject files that are not
// BMFont text at all.
package fontsource

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Info is the subset of a BMFont definition the bake pipeline reads.
type Info struct {
	// Face is the font face name from the info tag, if present.
	Face string
	// Pages holds the page image file names in page-id order.
	Pages []string
}

// Parse reads a text-format BMFont definition. Binary BMFont files
// (version 3, starting with "BMF\x03") are rejected: the runtime
// contract stores the text form verbatim.
func Parse(data []byte) (*Info, error) {
	if bytes.HasPrefix(data, []byte("BMF")) {
		return nil, fmt.Errorf("fontsource: binary BMFont files are not supported, export the text format")
	}

	info := &Info{}
	type pageEntry struct {
		id   int
		file string
	}
	var pages []pageEntry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	sawTag := false
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tag, rest, _ := strings.Cut(line, " ")
		switch tag {
		case "info":
			sawTag = true
			attrs := parseAttrs(rest)
			info.Face = unquote(attrs["face"])
		case "common", "chars", "char", "kernings", "kerning":
			sawTag = true
		case "page":
			sawTag = true
			attrs := parseAttrs(rest)
			file := unquote(attrs["file"])
			if file == "" {
				return nil, fmt.Errorf("fontsource: line %d: page tag has no file attribute", lineNumber)
			}
			id := 0
			if raw, ok := attrs["id"]; ok {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("fontsource: line %d: bad page id %q", lineNumber, raw)
				}
				id = parsed
			}
			pages = append(pages, pageEntry{id: id, file: file})
		default:
			return nil, fmt.Errorf("fontsource: line %d: unknown tag %q", lineNumber, tag)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fontsource: %w", err)
	}
	if !sawTag {
		return nil, fmt.Errorf("fontsource: no BMFont tags found")
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("fontsource: font defines no pages")
	}

	// Page tags may appear in any order; the baked page list is
	// ordered by page id.
	for target := 0; target < len(pages); target++ {
		for i := target; i < len(pages); i++ {
			if pages[i].id == target {
				pages[target], pages[i] = pages[i], pages[target]
				break
			}
		}
		if pages[target].id != target {
			return nil, fmt.Errorf("fontsource: page ids are not contiguous from 0 (missing id %d)", target)
		}
	}
	info.Pages = make([]string, len(pages))
	for i, page := range pages {
		info.Pages[i] = page.file
	}
	return info, nil
}

// parseAttrs splits `key=value key="value with spaces"` attribute
// lists. Values never contain escaped quotes in BMFont output.
func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := s[:eq]
		s = s[eq+1:]
		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				value = s
				s = ""
			} else {
				value = s[:end+2]
				s = s[end+2:]
			}
		} else {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				value = s
				s = ""
			} else {
				value = s[:end]
				s = s[end:]
			}
		}
		attrs[key] = value
	}
	return attrs
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
