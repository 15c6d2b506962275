// Package icons produces launcher icons from one source image: a centered
// square crop, resized to every target size, saved once as-is and once with
// a circular alpha mask.
package icons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"azkartool/internal/fsutil"
	"azkartool/internal/logging"
)

var (
	// ErrSourceImageNotFound aborts the whole run; nothing is written.
	ErrSourceImageNotFound = errors.New("source image not found")
	// ErrWriteFailure wraps a per-target failure; other targets still run.
	ErrWriteFailure = errors.New("write failure")
)

const (
	DefaultCropFraction = 0.6
	SquareName          = "ic_launcher.png"
	RoundName           = "ic_launcher_round.png"
)

// Target is one output folder and its square pixel size.
type Target struct {
	Folder string `yaml:"folder"`
	Size   int    `yaml:"size"`
}

// DefaultTargets returns the Android mipmap densities in processing order.
func DefaultTargets() []Target {
	return []Target{
		{Folder: "mipmap-mdpi", Size: 48},
		{Folder: "mipmap-hdpi", Size: 72},
		{Folder: "mipmap-xhdpi", Size: 96},
		{Folder: "mipmap-xxhdpi", Size: 144},
		{Folder: "mipmap-xxxhdpi", Size: 192},
	}
}

// Options configures Run. Zero CropFraction and empty Targets mean the
// defaults.
type Options struct {
	Source       string
	OutputRoot   string
	CropFraction float64
	Targets      []Target
}

// TargetResult is the outcome for one target.
type TargetResult struct {
	Target
	SquarePath string
	RoundPath  string
	Bytes      int
	Err        error
}

// Report describes a run. Results follow the order of Options.Targets.
type Report struct {
	SourceWidth  int
	SourceHeight int
	CropSide     int
	Results      []TargetResult
}

// Failed counts targets that did not produce both files.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Validate checks o after defaults are applied.
func (o Options) Validate() error {
	if o.Source == "" {
		return fmt.Errorf("no source image configured")
	}
	if o.OutputRoot == "" {
		return fmt.Errorf("no output root configured")
	}
	if o.CropFraction <= 0 || o.CropFraction > 1 {
		return fmt.Errorf("crop fraction must be in (0, 1], got %v", o.CropFraction)
	}
	seen := make(map[string]bool, len(o.Targets))
	for _, t := range o.Targets {
		if t.Size <= 0 {
			return fmt.Errorf("target %q: size must be positive, got %d", t.Folder, t.Size)
		}
		if t.Folder == "" || !filepath.IsLocal(t.Folder) {
			return fmt.Errorf("target folder %q must be a relative path inside the output root", t.Folder)
		}
		if seen[t.Folder] {
			return fmt.Errorf("target folder %q listed twice", t.Folder)
		}
		seen[t.Folder] = true
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.CropFraction == 0 {
		o.CropFraction = DefaultCropFraction
	}
	if len(o.Targets) == 0 {
		o.Targets = DefaultTargets()
	}
	return o
}

// Run processes every target in order. A missing or undecodable source
// aborts immediately. Per-target failures are collected into the returned
// *multierror.Error while the remaining targets still run; the Report is
// returned in both cases.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(opts.Source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.IconsError("source image %s not found, nothing written", opts.Source)
			return nil, fmt.Errorf("%w: %s", ErrSourceImageNotFound, opts.Source)
		}
		return nil, fmt.Errorf("stat source image: %w", err)
	}
	src, err := imaging.Open(opts.Source, imaging.AutoOrientation(true))
	if err != nil {
		logging.IconsError("cannot decode source image %s: %v", opts.Source, err)
		return nil, fmt.Errorf("decode source image %s: %w", opts.Source, err)
	}

	b := src.Bounds()
	report := &Report{SourceWidth: b.Dx(), SourceHeight: b.Dy()}
	logging.Icons("source %s: %dx%d", opts.Source, b.Dx(), b.Dy())

	square, side, err := CenterCrop(src, opts.CropFraction)
	if err != nil {
		return nil, err
	}
	report.CropSide = side
	logging.IconsDebug("cropped to %dx%d (fraction %.2f)", side, side, opts.CropFraction)

	var merr *multierror.Error
	for _, t := range opts.Targets {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
			break
		}
		res := writeTarget(square, opts.OutputRoot, t)
		if res.Err != nil {
			logging.IconsWarn("%v", res.Err)
			merr = multierror.Append(merr, res.Err)
		} else {
			logging.IconsDebug("wrote %s (%s)", filepath.Join(opts.OutputRoot, t.Folder), humanize.Bytes(uint64(res.Bytes)))
		}
		report.Results = append(report.Results, res)
	}
	return report, merr.ErrorOrNil()
}

// CenterCrop cuts the centered square whose side is fraction of the smaller
// source dimension.
func CenterCrop(img image.Image, fraction float64) (*image.NRGBA, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	side := int(float64(min(w, h)) * fraction)
	if side < 1 {
		return nil, 0, fmt.Errorf("crop of %dx%d at fraction %v is empty", w, h, fraction)
	}
	rect := image.Rect(
		b.Min.X+(w-side)/2, b.Min.Y+(h-side)/2,
		b.Min.X+(w+side)/2, b.Min.Y+(h+side)/2,
	)
	return imaging.Crop(img, rect), side, nil
}

// CircularMask returns a copy of img whose alpha is opaque inside the
// inscribed ellipse and fully transparent outside, tested at pixel centers.
func CircularMask(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	rx, ry := float64(b.Dx())/2, float64(b.Dy())/2
	for y := 0; y < b.Dy(); y++ {
		dy := (float64(y) + 0.5 - ry) / ry
		for x := 0; x < b.Dx(); x++ {
			dx := (float64(x) + 0.5 - rx) / rx
			i := out.PixOffset(b.Min.X+x, b.Min.Y+y)
			if dx*dx+dy*dy <= 1 {
				out.Pix[i+3] = 0xff
			} else {
				out.Pix[i+3] = 0
			}
		}
	}
	return out
}

func writeTarget(square image.Image, root string, t Target) TargetResult {
	res := TargetResult{Target: t}
	fail := func(err error) TargetResult {
		res.Err = fmt.Errorf("target %s (%dpx): %w: %w", t.Folder, t.Size, ErrWriteFailure, err)
		return res
	}

	dir := filepath.Join(root, t.Folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(err)
	}
	resized := imaging.Resize(square, t.Size, t.Size, imaging.Lanczos)

	res.SquarePath = filepath.Join(dir, SquareName)
	n, err := savePNG(resized, res.SquarePath)
	if err != nil {
		return fail(err)
	}
	res.Bytes += n

	res.RoundPath = filepath.Join(dir, RoundName)
	n, err = savePNG(CircularMask(resized), res.RoundPath)
	if err != nil {
		return fail(err)
	}
	res.Bytes += n
	return res
}

func savePNG(img image.Image, path string) (int, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return 0, fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}
