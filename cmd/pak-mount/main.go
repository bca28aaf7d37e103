// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Command pak-mount exposes a pak archive as a read-only FUSE
// filesystem: one directory per asset kind, one file per AssetKey
// containing the asset's canonical decompressed bytes. Intended for
// poking at an archive with ordinary shell tools; runtime consumers
// use the library reader.
//
// Usage:
//
//	pak-mount [flags] <archive.pak> <mountpoint>
//
// An optional JSONC options file covers the settings that are awkward
// as flags in scripted debug setups:
//
//	{
//	  // permit other users to read the mount
//	  "allow-other": false,
//	}
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/pak-forge/pak/lib/pakfuse"
	"github.com/pak-forge/pak/lib/reader"
)

type mountConfig struct {
	AllowOther bool `json:"allow-other"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pak-mount: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("pak-mount", pflag.ContinueOnError)
	optionsPath := flags.StringP("options", "o", "", "JSONC mount options file")
	allowOther := flags.Bool("allow-other", false, "permit other users to read the mount")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("expected <archive.pak> <mountpoint>, got %d arguments", flags.NArg())
	}

	config := mountConfig{AllowOther: *allowOther}
	if *optionsPath != "" {
		data, err := os.ReadFile(*optionsPath)
		if err != nil {
			return fmt.Errorf("reading options: %w", err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
			return fmt.Errorf("parsing options %s: %w", *optionsPath, err)
		}
	}

	archive, err := reader.Open(flags.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	server, err := pakfuse.Mount(pakfuse.Options{
		Mountpoint: flags.Arg(1),
		Reader:     archive,
		AllowOther: config.AllowOther,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "mounted %s at %s (ctrl-c to unmount)\n", flags.Arg(0), flags.Arg(1))

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupted
		if err := server.Unmount(); err != nil {
			fmt.Fprintf(os.Stderr, "pak-mount: unmount: %v\n", err)
		}
	}()

	server.Wait()
	return nil
}
