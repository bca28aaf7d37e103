// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/pak-forge/pak/lib/content"
)

// PrintError writes err to w. Configuration errors that carry a file
// path additionally print the offending document with TOML syntax
// highlighting so the author can spot the problem without reopening
// the file. Highlighting degrades to plain text when the output does
// not support color.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)

	var cfg *content.ConfigError
	if !errors.As(err, &cfg) || cfg.Path == "" {
		return
	}
	data, readErr := os.ReadFile(cfg.Path)
	if readErr != nil {
		return
	}
	// Only show short documents in full; a giant asset list scrolling
	// past would bury the error line.
	if strings.Count(string(data), "\n") > 60 {
		return
	}

	fmt.Fprintf(w, "\nin %s:\n", cfg.Path)
	fmt.Fprintln(w, highlightTOML(string(data)))
}

// highlightTOML renders TOML source for the current terminal,
// stripping escape sequences entirely when the terminal reports no
// color support.
func highlightTOML(source string) string {
	profile := termenv.EnvColorProfile()

	var b strings.Builder
	formatter := "terminal256"
	if profile == termenv.TrueColor {
		formatter = "terminal16m"
	}
	if err := quick.Highlight(&b, source, "toml", formatter, "monokai"); err != nil {
		return source
	}
	highlighted := b.String()
	if profile == termenv.Ascii {
		return ansi.Strip(highlighted)
	}
	return highlighted
}
