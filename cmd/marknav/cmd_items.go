package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"marknav/internal/document"
	"marknav/internal/logging"
)

var itemsJSON bool

var itemsCmd = &cobra.Command{
	Use:   "items [file]",
	Short: "Parse a Markdown file and list its pointer-addressed items",
	Args:  cobra.ExactArgs(1),
	RunE:  runItems,
}

func init() {
	itemsCmd.Flags().BoolVar(&itemsJSON, "json", false, "emit items as JSON")
}

func runItems(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	doc := document.Load(string(data), "")
	items := doc.Items()

	if itemsJSON {
		type jsonItem struct {
			document.Item
			Pointer string `json:"pointer"`
		}
		out := make([]jsonItem, len(items))
		for i, it := range items {
			out[i] = jsonItem{Item: it, Pointer: it.Pointer.Compact()}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, it := range items {
		preview := strings.ReplaceAll(it.Markdown, "\n", " ")
		fmt.Printf("%-12s %-14s %s\n", it.Pointer.Compact(), it.Type, logging.Truncate(preview, 72))
	}
	fmt.Printf("\n%d item(s)\n", len(items))
	return nil
}
