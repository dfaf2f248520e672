package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"studynotes/api/internal/document"
	"studynotes/api/internal/export"
)

var (
	statsJSON     bool
	markdownTitle string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Print the plain text of a note",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), document.PlainText(doc))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Print word and character counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd, args)
		if err != nil {
			return err
		}
		stats := document.StatsOf(doc)
		if statsJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"words":      stats.Words,
				"characters": stats.Characters,
				"isEmpty":    document.IsEmpty(doc),
				"excerpt":    document.Excerpt(doc, document.DefaultExcerptLength),
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "words: %d\ncharacters: %d\n", stats.Words, stats.Characters)
		return nil
	},
}

var htmlCmd = &cobra.Command{
	Use:   "html [file]",
	Short: "Render a note as HTML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), document.Markup(doc))
		return nil
	},
}

var markdownCmd = &cobra.Command{
	Use:   "markdown [file]",
	Short: "Convert a note to Markdown",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd, args)
		if err != nil {
			return err
		}
		result, err := export.NewServiceWith(nil, nil).Export(cmd.Context(), export.Request{
			Format: export.FormatMarkdown,
			Note:   export.Note{Title: markdownTitle, Content: doc},
		})
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(result.Data)
		return err
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that a file holds a well-formed note tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadDocument(cmd, args); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
	markdownCmd.Flags().StringVar(&markdownTitle, "title", "", "Title heading for the document")
	rootCmd.AddCommand(extractCmd, statsCmd, htmlCmd, markdownCmd, validateCmd)
}
