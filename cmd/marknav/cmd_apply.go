package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"marknav/internal/document"
)

var (
	applyWrite  bool
	applyStrict bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [file] [ops.yaml]",
	Short: "Apply a batch of edit operations to a Markdown file",
	Long: `Reads an ordered operation batch from a YAML file and applies it
against the document. Targets address items by current label or index.

Example ops file:

  - op: replace
    target: {label: "1.p1"}
    items:
      - {type: paragraph, markdown: "Rewritten."}
  - op: insert_after
    target: {label: "1.1"}
    items:
      - {type: paragraph, markdown: "New paragraph."}`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVarP(&applyWrite, "write", "w", false, "write the result back to the file")
	applyCmd.Flags().BoolVar(&applyStrict, "strict", false, "fail the whole batch on any unresolvable target")
}

// opSpec is the YAML shape of one operation.
type opSpec struct {
	Op     string `yaml:"op"`
	Target struct {
		Label string `yaml:"label"`
		Index *int   `yaml:"index"`
	} `yaml:"target"`
	Items []struct {
		Type     string `yaml:"type"`
		Level    int    `yaml:"level"`
		Markdown string `yaml:"markdown"`
	} `yaml:"items"`
}

func runApply(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	opsData, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	var specs []opSpec
	if err := yaml.Unmarshal(opsData, &specs); err != nil {
		return fmt.Errorf("failed to parse operations: %w", err)
	}
	ops := make([]document.Operation, 0, len(specs))
	for _, s := range specs {
		op := document.Operation{
			Kind:   document.OpKind(s.Op),
			Target: document.Target{Label: s.Target.Label, Index: s.Target.Index},
		}
		for _, it := range s.Items {
			op.Items = append(op.Items, document.NewItem{
				Type:     document.ItemType(it.Type),
				Level:    it.Level,
				Markdown: it.Markdown,
			})
		}
		ops = append(ops, op)
	}

	doc := document.Load(string(data), "")
	skipped, err := doc.Apply(ops, document.ApplyOptions{Strict: applyStrict})
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", s)
	}

	if applyWrite {
		if err := os.WriteFile(args[0], []byte(doc.SourceText()+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Printf("Applied %d operation(s) (%d skipped) to %s\n", len(ops)-len(skipped), len(skipped), args[0])
		return nil
	}

	fmt.Println(doc.SourceText())
	return nil
}
