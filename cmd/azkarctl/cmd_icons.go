package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"azkartool/internal/icons"
)

var (
	iconsSource   string
	iconsOut      string
	iconsFraction float64
)

// iconsCmd regenerates the launcher icons
var iconsCmd = &cobra.Command{
	Use:   "icons",
	Short: "Generate square and round launcher icons for every density",
	Long: `Crops the centered square of the source image (the crop fraction of the
smaller side), resizes it with Lanczos to every target size and writes
<out>/<folder>/ic_launcher.png and ic_launcher_round.png.

A missing source aborts before anything is written. A failing target is
reported and the remaining targets are still produced.`,
	Args: cobra.NoArgs,
	RunE: runIcons,
}

func init() {
	iconsCmd.Flags().StringVar(&iconsSource, "source", "", "Source image (overrides icons.source)")
	iconsCmd.Flags().StringVar(&iconsOut, "out", "", "Android res directory (overrides icons.output_root)")
	iconsCmd.Flags().Float64Var(&iconsFraction, "fraction", 0, "Crop fraction of the smaller side (overrides icons.crop_fraction)")
}

func runIcons(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	opts := cfg.IconOptions(ws)
	if iconsSource != "" {
		opts.Source = resolvePath(iconsSource)
	}
	if iconsOut != "" {
		opts.OutputRoot = resolvePath(iconsOut)
	}
	if iconsFraction != 0 {
		opts.CropFraction = iconsFraction
	}

	report, err := icons.Run(cmd.Context(), opts)
	if report == nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "source %dx%d, crop %dx%d\n", report.SourceWidth, report.SourceHeight, report.CropSide, report.CropSide)
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "  %-16s %4dpx  FAILED\n", res.Folder, res.Size)
			continue
		}
		fmt.Fprintf(w, "  %-16s %4dpx  ok (%s)\n", res.Folder, res.Size, humanize.Bytes(uint64(res.Bytes)))
	}
	logger.Info("icons generated",
		zap.Int("targets", len(report.Results)),
		zap.Int("failed", report.Failed()),
		zap.String("output_root", opts.OutputRoot),
	)
	return err
}
