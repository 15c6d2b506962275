package main

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"azkartool/internal/record"
)

var (
	repairEscapeNewlines bool
	repairCollapseBlank  bool
	repairPreview        previewFlags
)

// repairCmd normalizes known corruption in the raw text
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fix raw line breaks inside strings and doubled blank lines",
	Long: `Normalizes the raw text of the content file. Each repair is opt-in:

  --escape-newlines        turn raw line breaks inside quoted strings of named
                           blocks into the \n escape
  --collapse-blank-lines   replace every blank-line pair with a single line break

After repairing, every named block must parse or nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().BoolVar(&repairEscapeNewlines, "escape-newlines", false, "Escape raw line breaks inside string literals")
	repairCmd.Flags().BoolVar(&repairCollapseBlank, "collapse-blank-lines", false, "Collapse doubled line breaks")
	repairCmd.MarkFlagsOneRequired("escape-newlines", "collapse-blank-lines")
	repairPreview.register(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	patcher, err := newPatcher()
	if err != nil {
		return err
	}
	return rewriteDocument(cmd, documentFile(), repairPreview, func(text string, w io.Writer) (string, error) {
		out := text
		if repairEscapeNewlines {
			var n int
			out, n = record.EscapeRawLineBreaks(out)
			fmt.Fprintf(w, "escaped %d raw line break(s)\n", n)
		}
		if repairCollapseBlank {
			var n int
			out, n = record.CollapseBlankLines(out)
			fmt.Fprintf(w, "collapsed %d blank line(s)\n", n)
		}

		var merr *multierror.Error
		for _, rep := range patcher.Inspect(out) {
			if rep.Err != nil {
				merr = multierror.Append(merr, rep.Err)
			}
		}
		if err := merr.ErrorOrNil(); err != nil {
			return "", fmt.Errorf("blocks still fail to parse after repair: %w", err)
		}
		return out, nil
	})
}
