// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/pak-forge/pak/lib/codec"
)

// ConfigError describes a malformed declarative document: a TOML
// syntax error, an unknown field, or a bad enum value. It carries the
// file path (when known) so CLI layers can point at the offending
// document.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Content is the top-level bake description: a default compression
// kind plus one or more asset groups.
type Content struct {
	// Compression names the default codec kind for the bake run.
	// Empty selects brotli.
	Compression string `toml:"compression"`

	Groups []Group `toml:"group"`
}

// Group is one set of glob patterns resolved relative to the content
// file's directory. Disabled groups are skipped entirely.
type Group struct {
	// Enabled defaults to true when absent.
	Enabled *bool    `toml:"enabled"`
	Assets  []string `toml:"assets"`
}

// IsEnabled reports whether the group participates in the bake.
func (g *Group) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// CompressionKind resolves the content document's compression field
// to a codec kind, defaulting to brotli when unset.
func (c *Content) CompressionKind() (codec.Kind, error) {
	if c.Compression == "" {
		return codec.KindBrotli, nil
	}
	return codec.ParseKind(c.Compression)
}

// contentFile is the on-disk shape: everything lives under a single
// [content] table.
type contentFile struct {
	Content *Content `toml:"content"`
}

// ParseContent parses a content document from TOML bytes. Unknown
// fields are rejected so typos surface at bake time instead of
// silently producing an incomplete archive.
func ParseContent(data []byte) (*Content, error) {
	var file contentFile
	if err := strictUnmarshal(data, &file); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if file.Content == nil {
		return nil, &ConfigError{Err: fmt.Errorf("missing [content] table")}
	}
	if _, err := file.Content.CompressionKind(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if len(file.Content.Groups) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("content has no [[content.group]] tables")}
	}
	return file.Content, nil
}

// ReadContentFile reads and parses a content document from disk. The
// returned directory is the content file's parent, against which
// group globs and absolute asset paths resolve.
func ReadContentFile(path string) (*Content, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	content, err := ParseContent(data)
	if err != nil {
		var cfg *ConfigError
		if errors.As(err, &cfg) {
			cfg.Path = path
		}
		return nil, "", err
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("resolving directory of %s: %w", path, err)
	}
	return content, dir, nil
}

// strictUnmarshal decodes TOML with unknown fields rejected.
func strictUnmarshal(data []byte, v any) error {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown field: %s", strict.String())
		}
		return err
	}
	return nil
}
