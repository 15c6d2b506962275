package main

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azkartool/internal/config"
	"azkartool/internal/document"
	"azkartool/internal/icons"
	"azkartool/internal/record"
)

const sampleDoc = `import type { Zikr } from "./types";

export const morningAzkar = [
  {
    id: 1,
    arabic: "بِسْمِ اللَّهِ\nأَصْبَحْنَا وَأَصْبَحَ الْمُلْكُ لِلَّهِ",
    transliteration: "Asbahna wa asbahal-mulku lillah",
    translation: "We have entered the morning",
    count: 1,
  },
  {
    id: 5,
    arabic: "سُبْحَانَ اللَّهِ وَبِحَمْدِهِ",
    transliteration: "Subhan Allahi wa bihamdihi",
    translation: "Glory be to Allah and praise Him",
    count: 100,
  },
];

export const eveningAzkar = [
  {
    id: 1,
    arabic: "أَمْسَيْنَا وَأَمْسَى الْمُلْكُ لِلَّهِ",
    transliteration: "Amsayna wa amsal-mulku lillah",
    translation: "We have entered the evening",
    count: 1,
  },
];
`

// setupWorkspace creates a workspace holding the content file at the
// default config location and returns both paths.
func setupWorkspace(t *testing.T, content string) (string, string) {
	t.Helper()
	for _, k := range []string{"AZKAR_DOCUMENT", "AZKAR_ENCODING", "AZKAR_ICON_SOURCE", "AZKAR_ICON_OUTPUT", "AZKAR_LOG_LEVEL", "AZKAR_DEBUG"} {
		t.Setenv(k, "")
	}
	ws := t.TempDir()
	doc := filepath.Join(ws, "src", "lib", "azkar-data.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(doc), 0755))
	require.NoError(t, os.WriteFile(doc, []byte(content), 0644))
	return ws, doc
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func blockRecords(t *testing.T, doc, name string) []record.Record {
	t.Helper()
	span, err := record.LocateBlock(doc, name)
	require.NoError(t, err)
	records, err := record.ParseRecords(span.Inner(doc), record.DefaultSchema())
	require.NoError(t, err)
	return records
}

func ids(records []record.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestInitCmd(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)

	out, err := execute(t, "init", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote .azkar/config.yaml")

	path := config.DefaultPath(ws)
	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))
	out, err = execute(t, "init", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.Equal(t, "logging:\n  level: warn\n", readFile(t, path))
}

func TestCheckCmd(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)

	out, err := execute(t, "check", "-w", ws, "--no-color")
	require.NoError(t, err, "gaps are warnings only")
	assert.Contains(t, out, "WARN morningAzkar: 2 records, missing ids 2, 3, 4")
	assert.Contains(t, out, "OK   eveningAzkar: 1 records, ids 1..1")
	assert.Contains(t, out, "2 block(s), 3 record(s), utf-8")
}

func TestCommandsSkipNonRecordArrays(t *testing.T) {
	ws, doc := setupWorkspace(t, "export const MILESTONES = [10, 25] as const;\n\n"+sampleDoc)

	out, err := execute(t, "check", "-w", ws, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "SKIP MILESTONES: not a record array")
	assert.Contains(t, out, "2 block(s), 3 record(s), utf-8")

	_, err = execute(t, "renumber", "-w", ws)
	require.NoError(t, err)
	text := readFile(t, doc)
	assert.True(t, strings.HasPrefix(text, "export const MILESTONES = [10, 25] as const;\n"))
	assert.Equal(t, []int{1, 2}, ids(blockRecords(t, text, "morningAzkar")))
}

func TestCheckCmdFailsOnBrokenBlock(t *testing.T) {
	broken := sampleDoc + "\nexport const middayAzkar = [\n  {\n    id: 1,\n    arabic: \"raw\nbreak\",\n  },\n];\n"
	ws, _ := setupWorkspace(t, broken)

	out, err := execute(t, "check", "-w", ws, "--no-color")
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrMalformedRecord)
	assert.Contains(t, out, "FAIL middayAzkar")
	assert.Contains(t, out, "OK   eveningAzkar", "other blocks are still reported")
}

func TestCheckWatchReportsInitialFailure(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)
	require.NoError(t, os.Remove(doc))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := executeContext(t, ctx, "--workspace", ws, "check", "--watch")
	require.NoError(t, err)
	assert.Contains(t, out, "check failed:")
	assert.Contains(t, out, "azkar-data.ts")
	assert.Contains(t, out, "watching src/lib/azkar-data.ts")
}

func TestRenumberCmd(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)

	out, err := execute(t, "renumber", "-w", ws, "-b", "morningAzkar")
	require.NoError(t, err)
	assert.Contains(t, out, "morningAzkar: 2 -> 2 records")
	assert.Contains(t, out, "wrote src/lib/azkar-data.ts")

	text := readFile(t, doc)
	assert.Equal(t, []int{1, 2}, ids(blockRecords(t, text, "morningAzkar")))
	assert.Equal(t, []int{1}, ids(blockRecords(t, text, "eveningAzkar")))

	out, err = execute(t, "renumber", "-w", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")
}

func TestRenumberDryRunWritesNothing(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)

	out, err := execute(t, "renumber", "-w", ws, "--dry-run", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "-    id: 5,")
	assert.Contains(t, out, "+    id: 2,")
	assert.Contains(t, out, "dry run: +1 -1 lines, nothing written")
	assert.Equal(t, sampleDoc, readFile(t, doc))
}

func TestStripPrefixCmd(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)

	_, err := execute(t, "strip-prefix", "-w", ws, "-b", "morningAzkar", "--id", "1", "--prefix", `بِسْمِ اللَّهِ\n`)
	require.NoError(t, err)

	records := blockRecords(t, readFile(t, doc), "morningAzkar")
	assert.Equal(t, "أَصْبَحْنَا وَأَصْبَحَ الْمُلْكُ لِلَّهِ", records[0].Primary)
	assert.Equal(t, "سُبْحَانَ اللَّهِ وَبِحَمْدِهِ", records[1].Primary)

	_, err = execute(t, "strip-prefix", "-w", ws, "-b", "morningAzkar", "--field", "tafsir", "--prefix", "x")
	assert.ErrorContains(t, err, "unknown field")
}

func TestPatchCmd(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)
	planPath := filepath.Join(ws, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(`
blocks:
  - name: morningAzkar
    edits:
      - insert_records:
          after: {id: 1}
          records:
            - {id: 2, arabic: "الْحَمْدُ لِلَّهِ", transliteration: "Alhamdulillah", translation: "Praise be to Allah", count: 33}
      - renumber: {}
  - name: eveningAzkar
    edits:
      - replace_field: {match: {id: 1}, field: count, value: "3"}
`), 0644))

	out, err := execute(t, "patch", "-w", ws, "--plan", "plan.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "morningAzkar: 2 -> 3 records")
	assert.Contains(t, out, "eveningAzkar: 1 -> 1 records")

	text := readFile(t, doc)
	morning := blockRecords(t, text, "morningAzkar")
	assert.Equal(t, []int{1, 2, 3}, ids(morning))
	assert.Equal(t, "Alhamdulillah", morning[1].Transliteration)
	assert.Equal(t, 3, blockRecords(t, text, "eveningAzkar")[0].Count)
	assert.Contains(t, text, `import type { Zikr } from "./types";`)
}

func TestPatchCmdFailureLeavesDocumentUntouched(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)
	planPath := filepath.Join(ws, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(`
blocks:
  - name: eveningAzkar
    edits:
      - renumber: {start: 10}
  - name: morningAzkar
    edits:
      - delete_record: {match: {id: 99}}
`), 0644))

	_, err := execute(t, "patch", "-w", ws, "--plan", planPath)
	assert.ErrorIs(t, err, record.ErrRecordNotFound)
	assert.Equal(t, sampleDoc, readFile(t, doc), "no block is written when any block fails")
}

func TestPatchCmdUsesPlanDocument(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)
	other := filepath.Join(ws, "other.ts")
	require.NoError(t, os.WriteFile(other, []byte(sampleDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "plan.yaml"), []byte(
		"document: other.ts\nblocks:\n  - name: morningAzkar\n    edits:\n      - renumber: {}\n"), 0644))

	out, err := execute(t, "patch", "-w", ws, "--plan", "plan.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote other.ts")
	assert.Equal(t, []int{1, 2}, ids(blockRecords(t, readFile(t, other), "morningAzkar")))
}

func TestPatchCmdRefusesWhenLocked(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "plan.yaml"), []byte(
		"blocks:\n  - name: morningAzkar\n    edits:\n      - renumber: {}\n"), 0644))

	lock, err := document.Acquire(doc)
	require.NoError(t, err)
	defer lock.Release()

	_, err = execute(t, "patch", "-w", ws, "--plan", "plan.yaml")
	assert.ErrorIs(t, err, document.ErrLocked)
	assert.Equal(t, sampleDoc, readFile(t, doc))
}

func TestRepairCmd(t *testing.T) {
	broken := "export const morningAzkar = [\n  {\n    id: 1,\n    arabic: \"line one\nline two\",\n" +
		"    transliteration: \"t\",\n    translation: \"x\",\n    count: 1,\n  },\n];\n"
	ws, doc := setupWorkspace(t, broken)

	_, err := execute(t, "repair", "-w", ws)
	assert.Error(t, err, "a repair must be selected")

	out, err := execute(t, "repair", "-w", ws, "--escape-newlines")
	require.NoError(t, err)
	assert.Contains(t, out, "escaped 1 raw line break(s)")

	records := blockRecords(t, readFile(t, doc), "morningAzkar")
	assert.Equal(t, "line one\nline two", records[0].Primary)
}

func TestRepairCmdRefusesWhenBlocksStillBroken(t *testing.T) {
	broken := "export const morningAzkar = [\n  {\n    id: 1,\n    arabic: \"x\",\n  },\n];\n\n\n"
	ws, doc := setupWorkspace(t, broken)

	_, err := execute(t, "repair", "-w", ws, "--collapse-blank-lines")
	assert.ErrorIs(t, err, record.ErrMalformedRecord)
	assert.Equal(t, broken, readFile(t, doc))
}

func TestAppendCmd(t *testing.T) {
	ws, doc := setupWorkspace(t, sampleDoc)
	from := filepath.Join(ws, "sleep.ts")
	require.NoError(t, os.WriteFile(from, []byte(`[
  { id: 1, arabic: "بِاسْمِكَ اللَّهُمَّ أَمُوتُ وَأَحْيَا", transliteration: "Bismika Allahumma amutu wa ahya", translation: "In Your name, O Allah, I die and I live", count: 1 },
];
`), 0644))

	out, err := execute(t, "append", "-w", ws, "-b", "sleepAzkar", "--from", from)
	require.NoError(t, err)
	assert.Contains(t, out, "sleepAzkar: appended with 1 records")

	text := readFile(t, doc)
	assert.Equal(t, []string{"morningAzkar", "eveningAzkar", "sleepAzkar"}, record.ListBlocks(text))
	assert.Equal(t, "Bismika Allahumma amutu wa ahya", blockRecords(t, text, "sleepAzkar")[0].Transliteration)

	_, err = execute(t, "append", "-w", ws, "-b", "sleepAzkar", "--from", from)
	assert.ErrorIs(t, err, record.ErrBlockExists)
}

func TestRecordsFromSource(t *testing.T) {
	lit := `{ id: 1, arabic: "a", transliteration: "b", translation: "c", count: 1 }`
	schema := record.DefaultSchema()

	for name, src := range map[string]string{
		"bare":        lit + ",\n",
		"array":       "[\n  " + lit + ",\n]",
		"array semi":  "[" + lit + "];\n",
		"named block": "export const sleepAzkar = [\n" + lit + ",\n];\n",
	} {
		t.Run(name, func(t *testing.T) {
			records, err := recordsFromSource(src, schema)
			require.NoError(t, err)
			assert.Equal(t, []record.Record{{ID: 1, Primary: "a", Transliteration: "b", Translation: "c", Count: 1}}, records)
		})
	}

	_, err := recordsFromSource("[ "+lit, schema)
	assert.Error(t, err)
	_, err = recordsFromSource("  ", schema)
	assert.Error(t, err)
}

func TestIconsCmd(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)
	src := filepath.Join(ws, "logo.png")
	require.NoError(t, imaging.Save(imaging.New(300, 200, color.NRGBA{R: 0x1e, G: 0x6b, B: 0x52, A: 0xff}), src))

	out, err := execute(t, "icons", "-w", ws, "--source", "logo.png", "--out", "res")
	require.NoError(t, err)
	assert.Contains(t, out, "source 300x200, crop 120x120")
	for _, target := range icons.DefaultTargets() {
		assert.FileExists(t, filepath.Join(ws, "res", target.Folder, icons.SquareName))
		assert.FileExists(t, filepath.Join(ws, "res", target.Folder, icons.RoundName))
	}

	_, err = execute(t, "icons", "-w", ws, "--source", "missing.jpg", "--out", "res2")
	assert.ErrorIs(t, err, icons.ErrSourceImageNotFound)
	assert.NoDirExists(t, filepath.Join(ws, "res2"))
}

func TestDocumentFlagOverridesConfig(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)
	alt := filepath.Join(ws, "alt.ts")
	require.NoError(t, os.WriteFile(alt, []byte(sampleDoc), 0644))

	_, err := execute(t, "renumber", "-w", ws, "-d", "alt.ts")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(blockRecords(t, readFile(t, alt), "morningAzkar")))
	assert.Equal(t, sampleDoc, readFile(t, filepath.Join(ws, "src", "lib", "azkar-data.ts")))
}

func TestInvalidConfigIsRejected(t *testing.T) {
	ws, _ := setupWorkspace(t, sampleDoc)
	require.NoError(t, os.MkdirAll(filepath.Join(ws, config.Dir), 0755))
	require.NoError(t, os.WriteFile(config.DefaultPath(ws), []byte("document:\n  encoding: latin1\n"), 0644))

	_, err := execute(t, "check", "-w", ws)
	assert.ErrorContains(t, err, "invalid config")
}
