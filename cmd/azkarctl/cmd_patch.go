package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"azkartool/internal/plan"
)

var (
	patchPlanPath string
	patchPreview  previewFlags
)

// patchCmd applies a YAML edit plan
var patchCmd = &cobra.Command{
	Use:   "patch --plan plan.yaml",
	Short: "Apply a YAML edit plan to the content file",
	Long: `Applies every block's edits from the plan in memory, verifies each
rewritten block by parsing it back, and writes the content file once only
when all blocks succeed.

Example plan:
  blocks:
    - name: morningAzkar
      edits:
        - strip_prefix: {field: arabic, prefix: "أَعُوذُ بِاللَّهِ\\n", match: {id: 1}}
        - renumber: {start: 1}`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

func init() {
	patchCmd.Flags().StringVarP(&patchPlanPath, "plan", "p", "", "Edit plan (YAML)")
	_ = patchCmd.MarkFlagRequired("plan")
	patchPreview.register(patchCmd)
}

func runPatch(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(resolvePath(patchPlanPath))
	if err != nil {
		return err
	}
	blocks, err := p.BlockEdits(cfg.Schema)
	if err != nil {
		return err
	}
	patcher, err := newPatcher()
	if err != nil {
		return err
	}

	path := documentFile()
	if documentPath == "" && p.Document != "" {
		path = resolvePath(p.Document)
	}

	return rewriteDocument(cmd, path, patchPreview, func(text string, w io.Writer) (string, error) {
		out, results, err := patcher.PatchAll(text, blocks)
		if err != nil {
			return "", fmt.Errorf("plan %s: %w", patchPlanPath, err)
		}
		for _, r := range results {
			printResult(w, r)
		}
		return out, nil
	})
}
