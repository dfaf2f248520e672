package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"studynotes/api/internal/document"
)

// rootCmd works offline on stored note content: a TipTap JSON file, or stdin
// when the path is "-" or missing.
var rootCmd = &cobra.Command{
	Use:           "notesctl",
	Short:         "Inspect and convert study note content",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "notesctl: %v\n", err)
		os.Exit(1)
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

func loadDocument(cmd *cobra.Command, args []string) (*document.Document, error) {
	data, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	return document.Unmarshal(data)
}
