package main

import (
	"io"

	"github.com/spf13/cobra"

	"azkartool/internal/record"
)

var (
	renumberBlocks  []string
	renumberStart   int
	renumberPreview previewFlags
)

// renumberCmd rewrites ids densely in block order
var renumberCmd = &cobra.Command{
	Use:   "renumber",
	Short: "Renumber record ids 1..n in block order",
	Long: `Assigns ids start, start+1, ... to the records of each block in the
order they appear. Without --block every block listed in the config, or
every named block in the content file, is renumbered.`,
	Args: cobra.NoArgs,
	RunE: runRenumber,
}

func init() {
	renumberCmd.Flags().StringSliceVarP(&renumberBlocks, "block", "b", nil, "Block to renumber (repeatable)")
	renumberCmd.Flags().IntVar(&renumberStart, "start", 1, "First id")
	renumberPreview.register(renumberCmd)
}

func runRenumber(cmd *cobra.Command, args []string) error {
	patcher, err := newPatcher()
	if err != nil {
		return err
	}
	return rewriteDocument(cmd, documentFile(), renumberPreview, func(text string, w io.Writer) (string, error) {
		var plan []record.BlockEdits
		for _, name := range targetBlocks(renumberBlocks, text) {
			plan = append(plan, record.BlockEdits{
				Block: name,
				Edits: []record.Edit{record.Renumber{Start: renumberStart}},
			})
		}
		out, results, err := patcher.PatchAll(text, plan)
		if err != nil {
			return "", err
		}
		for _, r := range results {
			printResult(w, r)
		}
		return out, nil
	})
}
