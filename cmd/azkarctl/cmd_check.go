package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"azkartool/internal/document"
	"azkartool/internal/logging"
)

var (
	checkWatch    bool
	checkDebounce time.Duration
	checkNoColor  bool
)

// checkCmd validates every named block
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse every named block and report counts, gaps and duplicates",
	Long: `Reads the content file, parses every named block and reports its record
count and id density. Parse failures and duplicate ids fail the check; gaps
in the id sequence are reported as warnings (fix them with "renumber").

With --watch the check runs again whenever the file changes.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "Re-check whenever the content file changes")
	checkCmd.Flags().DurationVar(&checkDebounce, "debounce", 300*time.Millisecond, "Quiet period before re-checking in watch mode")
	checkCmd.Flags().BoolVar(&checkNoColor, "no-color", false, "Disable colors")
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	nameStyle = lipgloss.NewStyle().Bold(true)
)

func runCheck(cmd *cobra.Command, args []string) error {
	path := documentFile()
	w := cmd.OutOrStdout()

	err := checkOnce(w, path)
	if !checkWatch {
		return err
	}
	// Watch mode reports failures and keeps running.
	reportWatchErr(w, err)

	watcher, werr := document.NewWatcher(path, checkDebounce, func() {
		fmt.Fprintf(w, "\n-- %s changed, re-checking --\n", displayPath(path))
		reportWatchErr(w, checkOnce(w, path))
	})
	if werr != nil {
		return werr
	}
	fmt.Fprintf(w, "watching %s (ctrl-c to stop)\n", displayPath(path))
	return watcher.Run(cmd.Context())
}

func reportWatchErr(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "check failed: %v\n", err)
	logging.WatchWarn("check failed: %v", err)
}

// checkOnce prints a report for every block and returns the accumulated
// failures.
func checkOnce(w io.Writer, path string) error {
	doc, err := document.Read(path, cfg.Encoding())
	if err != nil {
		return err
	}
	patcher, err := newPatcher()
	if err != nil {
		return err
	}

	paint := func(s lipgloss.Style, text string) string {
		if checkNoColor {
			return text
		}
		return s.Render(text)
	}

	reports := patcher.Inspect(doc.Text)

	var merr *multierror.Error
	blocks, total := 0, 0
	for _, rep := range reports {
		name := paint(nameStyle, rep.Name)
		if rep.Skipped {
			fmt.Fprintf(w, "%s %s: not a record array\n", paint(warnStyle, "SKIP"), name)
			continue
		}
		blocks++
		switch {
		case rep.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", paint(failStyle, "FAIL"), name, rep.Err)
			merr = multierror.Append(merr, rep.Err)
		case len(rep.Duplicates) > 0:
			fmt.Fprintf(w, "%s %s: %d records, duplicate ids %s\n", paint(failStyle, "FAIL"), name, len(rep.Records), joinInts(rep.Duplicates))
			merr = multierror.Append(merr, fmt.Errorf("block %s: duplicate ids %s", rep.Name, joinInts(rep.Duplicates)))
		case !rep.Dense:
			detail := "ids out of order"
			if len(rep.Gaps) > 0 {
				detail = "missing ids " + joinInts(rep.Gaps)
			}
			fmt.Fprintf(w, "%s %s: %d records, %s\n", paint(warnStyle, "WARN"), name, len(rep.Records), detail)
		default:
			fmt.Fprintf(w, "%s   %s: %d records, ids 1..%d\n", paint(okStyle, "OK"), name, len(rep.Records), len(rep.Records))
		}
		total += len(rep.Records)
	}
	if blocks == 0 {
		return fmt.Errorf("%s: no named blocks found", displayPath(path))
	}
	fmt.Fprintf(w, "%d block(s), %d record(s), %s\n", blocks, total, doc.Encoding)
	return merr.ErrorOrNil()
}

func joinInts(ns []int) string {
	s := make([]string, len(ns))
	for i, n := range ns {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ", ")
}
