// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/pak-forge/pak/internal/cli"
	"github.com/pak-forge/pak/lib/bakecache"
	"github.com/pak-forge/pak/lib/writer"
)

func runBake(args []string) error {
	flags := pflag.NewFlagSet("bake", pflag.ContinueOnError)
	workers := flags.IntP("workers", "j", 0, "bake worker count (0 = all CPUs)")
	quiet := flags.BoolP("quiet", "q", false, "suppress per-asset progress")
	plain := flags.Bool("plain", false, "plain line output even on a terminal")
	cacheDir := flags.String("cache-dir", "", "directory for the cross-run bake cache")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("bake: expected <content.toml> <output.pak>, got %d arguments", flags.NArg())
	}
	contentPath, outputPath := flags.Arg(0), flags.Arg(1)

	options := writer.Options{Workers: *workers}
	if *cacheDir != "" {
		cache, err := bakecache.Open(*cacheDir)
		if err != nil {
			return err
		}
		options.Cache = cache
	}

	interactive := !*quiet && !*plain && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		if !*quiet {
			options.Progress = os.Stderr
		}
		return writer.Bake(contentPath, outputPath, options)
	}

	// Interactive: the bake coordinator feeds events to the TUI; the
	// TUI exits when the channel closes.
	events := make(chan writer.Event, 64)
	options.OnEvent = func(event writer.Event) {
		// Never let a stalled display stall the bake: drop events once
		// the buffer fills (the display only shows recent activity).
		select {
		case events <- event:
		default:
		}
	}

	bakeErr := make(chan error, 1)
	go func() {
		bakeErr <- writer.Bake(contentPath, outputPath, options)
		close(events)
	}()
	if err := cli.RunProgress(events); err != nil {
		// The display failing must not hide the bake outcome.
		fmt.Fprintf(os.Stderr, "pak: progress display: %v\n", err)
	}
	return <-bakeErr
}
