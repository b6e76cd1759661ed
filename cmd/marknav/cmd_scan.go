package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"marknav/internal/agent"
	"marknav/internal/cursor"
	"marknav/internal/document"
	"marknav/internal/llm"
	"marknav/internal/store"
)

var (
	scanTask            string
	scanKeywords        []string
	scanQuery           string
	scanExcludeHeadings bool
	scanBackward        bool
	scanPlain           bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [file...]",
	Short: "Run a grounded LLM scan over one or more Markdown files",
	Long: `Streams each document to the configured model in bounded portions
and accumulates evidence. The final answer is only accepted when it
points at content the model actually saw.

Multiple files are scanned concurrently, one run per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanTask, "task", "t", "", "task to answer about the document (required)")
	scanCmd.Flags().StringSliceVarP(&scanKeywords, "keyword", "k", nil, "restrict the scan to items matching these keywords")
	scanCmd.Flags().StringVarP(&scanQuery, "query", "q", "", "restrict the scan to items containing this text")
	scanCmd.Flags().BoolVar(&scanExcludeHeadings, "exclude-headings", false, "skip heading items")
	scanCmd.Flags().BoolVar(&scanBackward, "backward", false, "scan from the end of the document")
	scanCmd.Flags().BoolVar(&scanPlain, "plain", false, "print plain text instead of rendered markdown")
	_ = scanCmd.MarkFlagRequired("task")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := llm.New(cfg.LLM.Provider, llm.Options{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return err
	}

	var trace agent.TraceSink
	if cfg.Trace.Enabled {
		rs, err := store.Open(cfg.Trace.DatabasePath)
		if err != nil {
			return err
		}
		defer rs.Close()
		trace = rs
	}

	orch := agent.New(client, client, cfg.AgentSettings(), trace)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetLLMTimeout()*agent.HardStepCeiling)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]agent.Result, len(args))

	g, gCtx := errgroup.WithContext(ctx)
	for _, path := range args {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			doc := document.Load(string(data), path)

			dir := cursor.Forward
			start := cursor.Start{}
			if scanBackward {
				dir = cursor.Backward
				start = cursor.Start{AtEnd: true}
			}
			stream := cursor.NewStream(doc.Items(), start, dir, cfg.CursorParams(), scanMatcher())

			result, err := orch.Run(gCtx, scanTask, stream)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			mu.Lock()
			results[path] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, path := range args {
		printResult(path, results[path])
	}
	return nil
}

func scanMatcher() cursor.Matcher {
	switch {
	case len(scanKeywords) > 0:
		return cursor.NewKeyword(scanKeywords)
	case scanQuery != "":
		return cursor.NewQuery(scanQuery)
	default:
		return cursor.FullScan{ExcludeHeadings: scanExcludeHeadings}
	}
}

func printResult(path string, result agent.Result) {
	var md string
	if result.Success {
		md = fmt.Sprintf("## %s\n\n**Found at `%s`** (%d steps)\n\n> %s\n\n%s\n\n*%s*\n",
			path, result.Pointer, result.StepsUsed, result.Excerpt, result.Summary, result.WhyThis)
	} else {
		md = fmt.Sprintf("## %s\n\n**No grounded answer** (%s, %d steps, %d evidence item(s))\n\n%s\n",
			path, result.StopReason, result.StepsUsed, len(result.Evidence), result.Summary)
	}

	if !scanPlain {
		if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			if out, err := renderer.Render(md); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Print(md)
}
