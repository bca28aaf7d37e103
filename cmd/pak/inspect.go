// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	fzf "github.com/junegunn/fzf/src"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/reader"
)

func runInspect(args []string) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	list := flags.BoolP("list", "l", false, "print all keys and exit (no picker)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("inspect: expected <archive.pak>, got %d arguments", flags.NArg())
	}

	archive, err := reader.Open(flags.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	type row struct {
		kind assets.Kind
		key  assets.Key
	}
	var rows []row
	for _, kind := range assets.AllKinds {
		for _, key := range archive.Keys(kind) {
			rows = append(rows, row{kind, key})
		}
	}
	if len(rows) == 0 {
		fmt.Println("archive is empty")
		return nil
	}

	if *list || !term.IsTerminal(int(os.Stdout.Fd())) {
		for _, r := range rows {
			fmt.Printf("%-12s %s\n", r.kind, r.key)
		}
		return nil
	}

	// Interactive: fuzzy-pick a key, then print its manifest entry.
	inputChan := make(chan string)
	go func() {
		for _, r := range rows {
			inputChan <- fmt.Sprintf("%s\t%s", r.kind, r.key)
		}
		close(inputChan)
	}()
	outputChan := make(chan string, 1)
	var picked []string
	collectDone := make(chan struct{})
	go func() {
		for line := range outputChan {
			picked = append(picked, line)
		}
		close(collectDone)
	}()

	options, err := fzf.ParseOptions(true, []string{
		"--delimiter=\t",
		"--with-nth=1,2",
		"--prompt=asset> ",
		"--height=40%",
	})
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	options.Input = inputChan
	options.Output = outputChan

	code, err := fzf.Run(options)
	close(outputChan)
	<-collectDone
	if err != nil && code != fzf.ExitInterrupt && code != fzf.ExitNoMatch {
		return fmt.Errorf("inspect: %w", err)
	}

	for _, line := range picked {
		kindName, keyName, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		kind, err := assets.ParseKind(kindName)
		if err != nil {
			continue
		}
		if err := printEntry(archive, kind, assets.Key(keyName)); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(archive *reader.Reader, kind assets.Kind, key assets.Key) error {
	entry, err := archive.Entry(kind, key)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", kind, key)
	fmt.Printf("  blob: %d\n", entry.BlobId)
	meta := entry.Metadata
	switch kind {
	case assets.KindBitmap:
		fmt.Printf("  %dx%d, %d channels, %d mips\n", meta.Width, meta.Height, meta.Channels, meta.MipLevels)
	case assets.KindBitmapFont:
		fmt.Printf("  %d pages\n", meta.PageCount)
	case assets.KindMesh:
		fmt.Printf("  %d parts, %d joints\n", meta.PartCount, meta.JointCount)
	case assets.KindAnimation:
		fmt.Printf("  duration %.3fs\n", meta.Duration)
	}
	return nil
}
