// Package main prints the structure of KTX2 files and the upload layout of
// their levels for a simulated device.
//
// Usage:
//
//	ktx2info [-caps bc,etc2,astc] [-workers N] [-dump dir] [-png out.png] [-v] file.ktx2...
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/woozymasta/ktx2"
)

var (
	capsFlag string
	workers  int
	dumpDir  string
	pngPath  string
	verbose  bool
)

func init() {
	flag.StringVar(&capsFlag, "caps", "bc", "Comma-separated device texture compression features: bc, etc2, astc, none")
	flag.IntVar(&workers, "workers", 0, "Concurrent Zstd level decompression (0 = sequential)")
	flag.StringVar(&dumpDir, "dump", "", "Write each resolved level payload to this directory")
	flag.StringVar(&pngPath, "png", "", "Write a PNG preview of level 0 (BC1-BC5 and 8-bit RGBA only)")
	flag.BoolVar(&verbose, "v", false, "Debug logging to stderr")
}

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if verbose {
		ktx2.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	caps, err := parseCaps(capsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := run(path, caps); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func parseCaps(s string) (ktx2.FeatureSet, error) {
	var features gputypes.Features
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "", "none":
		case "bc":
			features.Insert(gputypes.FeatureTextureCompressionBC)
		case "etc2":
			features.Insert(gputypes.FeatureTextureCompressionETC2)
		case "astc":
			features.Insert(gputypes.FeatureTextureCompressionASTC)
		default:
			return 0, fmt.Errorf("unknown capability %q", name)
		}
	}

	return ktx2.FeatureSet(features), nil
}

func run(path string, caps ktx2.FeatureSet) error {
	c, err := ktx2.ReadFile(path)
	if err != nil {
		return err
	}

	printContainer(path, c, caps)

	res, err := ktx2.ResolveDetailed(context.Background(), c, &ktx2.ResolveOptions{
		Capabilities: caps,
		Workers:      workers,
	})
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %v\n", w)
	}
	if err != nil {
		if len(res.Levels) == 0 {
			return err
		}
		fmt.Printf("  resolve stopped after %d levels: %v\n", len(res.Levels), err)
	}

	fmt.Println("  levels:")
	for _, l := range res.Levels {
		plan, err := l.Plan()
		if err != nil {
			fmt.Printf("    %2d  %5dx%-5d %s\n", l.Level, l.Width, l.Height, err)
			continue
		}
		fmt.Printf("    %2d  %5dx%-5d %-22s bytes=%-9d extent=%dx%dx%d blocksPerRow=%d bytesPerRow=%d rowsPerImage=%d repacked=%t\n",
			l.Level, l.Width, l.Height, l.Format.Name(), len(l.Data),
			plan.Extent.Width, plan.Extent.Height, plan.Extent.DepthOrArrayLayers,
			plan.BlocksPerRow, plan.BytesPerRow, plan.RowsPerImage, plan.Repacked)
	}

	if dumpDir != "" {
		if err := dumpLevels(path, res.Levels); err != nil {
			return err
		}
	}
	if pngPath != "" && len(res.Levels) > 0 {
		if err := writePreview(res.Levels[0]); err != nil {
			return err
		}
	}

	return nil
}

func printContainer(path string, c *ktx2.Container, caps ktx2.FeatureSet) {
	h := c.Header
	fmt.Printf("%s\n", path)
	fmt.Printf("  vkFormat:     %d (%s)\n", uint32(h.Format), h.Format)
	fmt.Printf("  size:         %dx%dx%d layers=%d faces=%d levels=%d\n",
		h.PixelWidth, h.PixelHeight, h.PixelDepth, h.LayerCount, h.FaceCount, h.LevelCount)
	fmt.Printf("  scheme:       %s\n", h.Scheme)

	switch {
	case c.NeedsTranscode():
		fmt.Printf("  resolution:   transcode (%s) -> %s\n", c.BasisEncoding(), ktx2.ChooseTranscodeTarget(caps))
	case c.Format.Supported(caps):
		fmt.Printf("  resolution:   native %s\n", c.Format.Name())
	default:
		fmt.Printf("  resolution:   %s not supported by device (%s)\n", c.Format.Name(), c.Format.Resolution)
	}

	if c.DFD != nil {
		d := c.DFD
		fmt.Printf("  dfd:          colorModel=%d primaries=%d transfer=%d flags=%d block=%v bytesPlane=%v samples=%d\n",
			d.ColorModel, d.ColorPrimaries, d.TransferFunction, d.Flags,
			d.TexelBlockDimension, d.BytesPlane, len(d.Samples))
	}
	if len(c.Metadata) > 0 {
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("  metadata:")
		for _, k := range keys {
			fmt.Printf("    %s = %q\n", k, c.Metadata[k])
		}
	}
	if sgd := c.SGD(); len(sgd) > 0 {
		fmt.Printf("  sgd:          %d bytes\n", len(sgd))
	}
}

func dumpLevels(path string, levels []ktx2.ResolvedLevel) error {
	if err := os.MkdirAll(dumpDir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, l := range levels {
		name := filepath.Join(dumpDir, fmt.Sprintf("%s_level%02d_%dx%d.bin", base, l.Level, l.Width, l.Height))
		if err := os.WriteFile(name, l.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return nil
}

func writePreview(l ktx2.ResolvedLevel) error {
	img, err := ktx2.DecodeRGBA(l, nil)
	if err != nil {
		return err
	}

	f, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}

	return f.Close()
}
