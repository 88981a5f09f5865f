// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command identify scans one or more Windows PE binaries against a PEiD
// signature database and prints the packer or compiler names that matched.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/petools/peidgo/peid"
	"github.com/petools/peidgo/sigdb"
	"github.com/petools/peidgo/trie"
)

var (
	dbPath           string
	epOnly           bool
	sectionStartOnly bool
	matchOnce        bool
	benchmark        bool
	verbose          bool
	stripAuthor      bool
	stripVersion     bool
)

var authorSuffix = regexp.MustCompile(`\s*->\s*[^,]+$`)
var versionSuffix = regexp.MustCompile(`\s+[vV]?\d+(\.\d+)*$`)

func cosmeticName(name string) string {
	if stripAuthor {
		name = authorSuffix.ReplaceAllString(name, "")
	}
	if stripVersion {
		name = versionSuffix.ReplaceAllString(name, "")
	}
	return name
}

func run(cmd *cobra.Command, args []string) error {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	if verbose {
		levelVar.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

	path := dbPath
	if path == "" {
		var err error
		path, err = sigdb.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("identify: materialising default database: %w", err)
		}
	}

	id, err := peid.Open(path, peid.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("identify: opening database: %w", err)
	}

	var scopes []trie.Scope
	switch {
	case epOnly:
		scopes = []trie.Scope{trie.EPOnly}
	case sectionStartOnly:
		scopes = []trie.Scope{trie.SectionStart}
	}

	matchAll := !matchOnce
	start := time.Now()
	results := id.IdentifyBatch(args, matchAll, scopes...)
	if benchmark {
		logger.Info("scan complete", "files", len(args), "elapsed", time.Since(start))
	}

	exitCode := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
			exitCode = 1
			continue
		}
		if len(r.Matches) == 0 {
			fmt.Printf("%s: unknown\n", r.Path)
			continue
		}
		names := make([]string, len(r.Matches))
		for i, m := range r.Matches {
			names[i] = cosmeticName(m)
		}
		fmt.Printf("%s: %v\n", r.Path, names)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "identify [files...]",
		Short: "Identify the packer or compiler of Windows PE binaries",
		Long:  "Scans one or more PE files against a PEiD signature database and reports the names of signatures that match.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to the signature database (defaults to the embedded database)")
	rootCmd.Flags().BoolVar(&epOnly, "ep-only", false, "only scan entry-point-scoped signatures")
	rootCmd.Flags().BoolVar(&sectionStartOnly, "section-start-only", false, "only scan section-start-scoped signatures")
	rootCmd.Flags().BoolVar(&matchOnce, "match-once", false, "stop at the first window that produces a match")
	rootCmd.Flags().BoolVar(&benchmark, "benchmark", false, "log elapsed scan time")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&stripAuthor, "author", false, "strip author annotations from reported names")
	rootCmd.Flags().BoolVar(&stripVersion, "version", false, "strip version annotations from reported names")
	rootCmd.MarkFlagsMutuallyExclusive("ep-only", "section-start-only")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
