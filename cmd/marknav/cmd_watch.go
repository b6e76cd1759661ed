package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marknav/internal/cursor"
	"marknav/internal/document"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Watch a Markdown file and report structural changes on save",
	Long: `Reloads the document whenever the file changes on disk. Open
cursors over the document are invalidated on every reload, since
pointers issued before an external edit may no longer resolve.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	docs := document.NewRegistry()
	doc := docs.LoadDocument(string(data), path)
	cursors := cursor.NewRegistry(cfg.CursorLimits())

	fmt.Printf("Watching %s (%d items). Ctrl-C to stop.\n", path, doc.Len())

	watcher, err := document.NewWatcher(docs, path, doc.ID(), func(docID string) {
		invalidated := cursors.InvalidateDocument(docID)
		reloaded, err := docs.Get(docID)
		if err != nil {
			return
		}
		fmt.Printf("Reloaded %s: %d items, generation %d, %d cursor(s) invalidated\n",
			docID, reloaded.Len(), reloaded.Generation(), invalidated)
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(cmd.Context()); err != nil {
		return err
	}
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}
