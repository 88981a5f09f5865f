// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command inspect lists the signatures held in a PEiD signature database,
// optionally filtered by name.
package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/petools/peidgo/sigdb"
)

var (
	dbPath string
	filter string
)

func run(cmd *cobra.Command, args []string) error {
	path := dbPath
	if path == "" {
		var err error
		path, err = sigdb.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("inspect: materialising default database: %w", err)
		}
	}

	db, err := sigdb.ParseFile(path)
	if err != nil {
		return fmt.Errorf("inspect: opening database: %w", err)
	}

	var re *regexp.Regexp
	if filter != "" {
		re, err = regexp.Compile(filter)
		if err != nil {
			return fmt.Errorf("inspect: invalid --filter: %w", err)
		}
	}

	count := 0
	for _, r := range db.Records() {
		if re != nil && !re.MatchString(r.Name) {
			continue
		}
		scope := "anywhere"
		switch {
		case r.EPOnly:
			scope = "ep_only"
		case r.SectionStartOnly:
			scope = "section_start_only"
		}
		fmt.Printf("%-50s %-20s %s\n", r.Name, scope, r.Signature(true))
		count++
	}
	fmt.Fprintf(os.Stderr, "%d signature(s)\n", count)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "inspect",
		Short: "List signatures in a PEiD signature database",
		Long:  "Lists every signature in a database, optionally filtered by a regular expression over the signature name.",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to the signature database (defaults to the embedded database)")
	rootCmd.Flags().StringVar(&filter, "filter", "", "only list signatures whose name matches this regular expression")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
