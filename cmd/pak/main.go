// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Command pak bakes declarative content descriptions into pak
// archives and inspects the result.
//
// Usage:
//
//	pak bake [flags] <content.toml> <output.pak>
//	pak inspect [flags] <archive.pak>
package main

import (
	"fmt"
	"os"

	"github.com/pak-forge/pak/internal/cli"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  pak bake [flags] <content.toml> <output.pak>
  pak inspect [flags] <archive.pak>

Run 'pak <command> --help' for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "bake":
		err = runBake(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "help", "--help", "-h":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pak: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
