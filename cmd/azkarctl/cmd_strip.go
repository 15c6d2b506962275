package main

import (
	"io"

	"github.com/spf13/cobra"

	"azkartool/internal/record"
)

var (
	stripBlock    string
	stripField    string
	stripPrefix   string
	stripID       int
	stripContains string
	stripPreview  previewFlags
)

// stripPrefixCmd removes a leading phrase from one field
var stripPrefixCmd = &cobra.Command{
	Use:   "strip-prefix",
	Short: "Remove a leading phrase from a field of a block's records",
	Long: `Removes --prefix, and the whitespace after it, from --field. Without
--id or --contains every record of the block is considered and records that
do not start with the prefix are left alone. With a selector exactly one
record must match.

"\n" in --prefix matches a line break.

Example:
  azkarctl strip-prefix -b morningAzkar --field arabic --id 1 \
    --prefix 'بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ\n'`,
	Args: cobra.NoArgs,
	RunE: runStripPrefix,
}

func init() {
	stripPrefixCmd.Flags().StringVarP(&stripBlock, "block", "b", "", "Block name")
	stripPrefixCmd.Flags().StringVar(&stripField, "field", "arabic", "Field key or logical field name")
	stripPrefixCmd.Flags().StringVar(&stripPrefix, "prefix", "", "Prefix to remove")
	stripPrefixCmd.Flags().IntVar(&stripID, "id", 0, "Only the record with this id")
	stripPrefixCmd.Flags().StringVar(&stripContains, "contains", "", "Only the record whose text contains this substring")
	_ = stripPrefixCmd.MarkFlagRequired("block")
	_ = stripPrefixCmd.MarkFlagRequired("prefix")
	stripPreview.register(stripPrefixCmd)
}

func runStripPrefix(cmd *cobra.Command, args []string) error {
	patcher, err := newPatcher()
	if err != nil {
		return err
	}
	field, err := cfg.Schema.ParseField(stripField)
	if err != nil {
		return err
	}
	edit := record.StripPrefix{Field: field, Prefix: stripPrefix}
	if stripID > 0 || stripContains != "" {
		edit.Match = record.Match{ID: stripID, Contains: stripContains}
	}

	return rewriteDocument(cmd, documentFile(), stripPreview, func(text string, w io.Writer) (string, error) {
		out, res, err := patcher.Patch(text, stripBlock, []record.Edit{edit})
		if err != nil {
			return "", err
		}
		printResult(w, res)
		return out, nil
	})
}
