// Copyright 2024 The peidgo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command authoring derives a consensus entry-point signature from a set of
// sample binaries and installs it into a PEiD signature database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petools/peidgo/authoring"
	"github.com/petools/peidgo/sigdb"
)

var (
	dbPath         string
	minLength      int
	maxLength      int
	bytesThreshold float64
	packerName     string
	version        string
	author         string
)

func parseTokens(sig string) ([]sigdb.Token, error) {
	_, records, err := sigdb.ParseText(fmt.Sprintf("[_]\nsignature = %s\nep_only = true\n", sig))
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("authoring: could not re-parse derived signature %q", sig)
	}
	return records[0].Bytes, nil
}

func run(cmd *cobra.Command, args []string) error {
	opts := authoring.Options{MinLength: minLength, MaxLength: maxLength, Threshold: bytesThreshold}
	sig, err := authoring.FindEPOnlySignature(args, opts)
	if err != nil {
		return fmt.Errorf("authoring: %w", err)
	}

	if packerName == "" {
		fmt.Println(sig)
		return nil
	}

	path := dbPath
	if path == "" {
		path, err = sigdb.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("authoring: materialising default database: %w", err)
		}
	}

	db, err := sigdb.ParseFile(path)
	if err != nil {
		return fmt.Errorf("authoring: opening database: %w", err)
	}

	tokens, err := parseTokens(sig)
	if err != nil {
		return err
	}

	if err := db.Set(packerName, tokens, true, false, author, version); err != nil {
		return fmt.Errorf("authoring: installing signature: %w", err)
	}

	if err := db.Dump(path); err != nil {
		return fmt.Errorf("authoring: writing database: %w", err)
	}

	fmt.Printf("%s: %s\n", packerName, sig)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "authoring [sample-files...]",
		Short: "Derive and install a consensus entry-point signature",
		Long:  "Reads the entry-point window of every sample, derives a wildcard-tolerant consensus signature, and installs it into a PEiD signature database.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to the signature database (defaults to the embedded database)")
	rootCmd.Flags().IntVar(&minLength, "min-length", 16, "minimum signature length in bytes")
	rootCmd.Flags().IntVar(&maxLength, "max-length", 64, "maximum signature length in bytes")
	rootCmd.Flags().Float64Var(&bytesThreshold, "bytes-threshold", 0.5, "minimum fraction of non-wildcard bytes required in the result")
	rootCmd.Flags().StringVar(&packerName, "packer", "", "name to install the derived signature under")
	rootCmd.Flags().StringVar(&version, "version", "", "version annotation appended to the installed name")
	rootCmd.Flags().StringVar(&author, "author", "", "author annotation appended to the installed name")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
