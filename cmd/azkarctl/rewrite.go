package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"azkartool/internal/diff"
	"azkartool/internal/document"
	"azkartool/internal/record"
)

// previewFlags are shared by every command that writes the Document.
type previewFlags struct {
	dryRun  bool
	noColor bool
}

func (p *previewFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.dryRun, "dry-run", false, "Print a diff instead of writing")
	cmd.Flags().BoolVar(&p.noColor, "no-color", false, "Disable colors in the diff")
}

// transformFunc turns the current Document text into the new text. It may
// print a summary to w.
type transformFunc func(text string, w io.Writer) (string, error)

// rewriteDocument runs transform over the Document at path under the path
// lock and writes the result once. Nothing is written when transform fails
// or in dry-run mode.
func rewriteDocument(cmd *cobra.Command, path string, pf previewFlags, transform transformFunc) error {
	w := cmd.OutOrStdout()

	if !pf.dryRun {
		lock, err := document.Acquire(path)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	doc, err := document.Read(path, cfg.Encoding())
	if err != nil {
		return err
	}
	out, err := transform(doc.Text, w)
	if err != nil {
		logger.Warn("document left unchanged", zap.String("path", path), zap.Error(err))
		return err
	}

	if pf.dryRun {
		d := diff.Compute(displayPath(path), doc.Text, out, diff.DefaultContext)
		if d.Empty() {
			fmt.Fprintln(w, "dry run: no changes")
			return nil
		}
		if err := d.Render(w, !pf.noColor); err != nil {
			return err
		}
		fmt.Fprintf(w, "dry run: %s lines, nothing written\n", d.Stats)
		return nil
	}

	res, err := doc.Write(out)
	if err != nil {
		return err
	}
	if res.Unchanged {
		fmt.Fprintf(w, "%s: no changes\n", displayPath(path))
		return nil
	}
	fmt.Fprintf(w, "wrote %s (%s, sha256 %s)\n", displayPath(path), humanize.Bytes(uint64(res.Bytes)), res.NewHash[:12])
	logger.Info("document written",
		zap.String("path", res.Path),
		zap.Int("bytes", res.Bytes),
		zap.String("old_sha256", res.OldHash),
		zap.String("new_sha256", res.NewHash),
	)
	return nil
}

func documentFile() string {
	return resolvePath(cfg.Document.Path)
}

func displayPath(path string) string {
	ws, err := resolveWorkspace()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(ws, path); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return path
}

func newPatcher() (*record.Patcher, error) {
	return record.NewPatcher(cfg.Schema)
}

func printResult(w io.Writer, r *record.Result) {
	fmt.Fprintf(w, "%s: %d -> %d records\n", r.Block, r.Before, r.After)
	for _, e := range r.Edits {
		fmt.Fprintf(w, "  %d. %s (%d -> %d)\n", e.Index, e.Description, e.Before, e.After)
	}
}

// targetBlocks returns the blocks named by flags, else the configured
// blocks, else every block in text.
func targetBlocks(flagBlocks []string, text string) []string {
	if len(flagBlocks) > 0 {
		return flagBlocks
	}
	if len(cfg.Document.Blocks) > 0 {
		return cfg.Document.Blocks
	}
	return record.ListBlocks(text)
}
