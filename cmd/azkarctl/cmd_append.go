package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"azkartool/internal/document"
	"azkartool/internal/record"
)

var (
	appendBlock   string
	appendFrom    string
	appendPreview previewFlags
)

// appendCmd adds a new named block
var appendCmd = &cobra.Command{
	Use:   "append --block name --from records.ts",
	Short: "Append a new named block built from record literals",
	Long: `Appends "export const <name> = [ ... ];" after the last block of the
content file. --from holds the records either as a bare list of
{ ... } literals, as a "[ ... ]" array, or as a file with its own named
block, whose records are taken. The block name must not exist yet.`,
	Args: cobra.NoArgs,
	RunE: runAppend,
}

func init() {
	appendCmd.Flags().StringVarP(&appendBlock, "block", "b", "", "Name of the new block")
	appendCmd.Flags().StringVar(&appendFrom, "from", "", "File holding the record literals")
	_ = appendCmd.MarkFlagRequired("block")
	_ = appendCmd.MarkFlagRequired("from")
	appendPreview.register(appendCmd)
}

func runAppend(cmd *cobra.Command, args []string) error {
	src, err := document.Read(resolvePath(appendFrom), document.EncodingUTF8)
	if err != nil {
		return err
	}
	records, err := recordsFromSource(src.Text, cfg.Schema)
	if err != nil {
		return fmt.Errorf("%s: %w", appendFrom, err)
	}
	patcher, err := newPatcher()
	if err != nil {
		return err
	}

	return rewriteDocument(cmd, documentFile(), appendPreview, func(text string, w io.Writer) (string, error) {
		out, err := patcher.AppendBlock(text, appendBlock, records)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(w, "%s: appended with %d records\n", appendBlock, len(records))
		return out, nil
	})
}

// recordsFromSource extracts records from a named block, an array literal
// or a bare list of record literals.
func recordsFromSource(text string, schema record.Schema) ([]record.Record, error) {
	if names := record.ListBlocks(text); len(names) > 0 {
		span, err := record.LocateBlock(text, names[0])
		if err != nil {
			return nil, err
		}
		return record.ParseRecords(span.Inner(text), schema)
	}

	inner := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(inner, "["); ok {
		rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")
		var closed bool
		inner, closed = strings.CutSuffix(strings.TrimSpace(rest), "]")
		if !closed {
			return nil, fmt.Errorf("array literal is not closed with ]")
		}
	}
	records, err := record.ParseRecords(inner, schema)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records found")
	}
	return records, nil
}
