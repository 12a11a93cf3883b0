// Command pixelart converts an image into pixel art using either a
// uniform grid or an adaptive quadtree partition.
//
// Flag handling follows the teacher's a/cmd/processor/main.go and
// d/cmd/processor/main.go: flag vars in a var (...) block, flag.Parse,
// log.Printf status lines. Every failure is logged with log.Print(f)
// and returned from run as an exit code; log.Fatalf is not used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rklaeser/pixelart/internal/codec"
	"github.com/rklaeser/pixelart/internal/converter"
	"github.com/rklaeser/pixelart/internal/extractor"
	"github.com/rklaeser/pixelart/internal/pixelart"
	"github.com/rklaeser/pixelart/internal/progress"
	"github.com/rklaeser/pixelart/internal/stats"
)

const (
	exitOK            = 0
	exitArgumentError = 1
	exitIOError       = 2
	exitProcessing    = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inputPath         = flag.String("i", "", "input image path")
		outputPath        = flag.String("o", "", "output image path")
		cols              = flag.Uint("w", 0, "grid columns (required unless --adaptive)")
		rows              = flag.Uint("h", 0, "grid rows (required unless --adaptive)")
		algorithm         = flag.String("a", "average", "extractor: average, median-cut, or kmeans")
		paletteSize       = flag.Uint("c", 16, "palette size for median-cut/kmeans")
		adaptive          = flag.Bool("adaptive", false, "use the adaptive quadtree strategy")
		maxDepth          = flag.Uint("max-depth", 10, "quadtree max depth")
		varianceThreshold = flag.Float64("variance-threshold", 50.0, "quadtree split threshold")
		redisProgress     = flag.String("redis-progress", "", "optional Redis address to also publish progress to")
	)
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		log.Print("error: -i and -o are required")
		return exitArgumentError
	}
	if *adaptive && (*cols != 0 || *rows != 0) {
		log.Print("error: -w/-h and --adaptive are mutually exclusive")
		return exitArgumentError
	}
	if !*adaptive && (*cols == 0 || *rows == 0) {
		log.Print("error: -w and -h are required unless --adaptive is set")
		return exitArgumentError
	}
	needsPalette := *algorithm == "median-cut" || *algorithm == "kmeans"
	if needsPalette && *paletteSize < 2 {
		log.Print("error: -c must be >= 2 for median-cut/kmeans")
		return exitArgumentError
	}

	startTime := time.Now()
	log.Printf("=== Starting pixel-art conversion ===")
	log.Printf("Input: %s", *inputPath)
	log.Printf("Output: %s", *outputPath)
	log.Printf("Extractor: %s", *algorithm)

	in, err := os.Open(*inputPath)
	if err != nil {
		log.Printf("error: opening input: %v", err)
		return exitIOError
	}
	defer in.Close()

	img, err := codec.Decode(in, codec.FormatFromPath(*inputPath))
	if err != nil {
		log.Printf("error: decoding input: %v", err)
		return exitIOError
	}
	log.Printf("Decoded %dx%d image", img.Width, img.Height)

	ex, err := buildExtractor(*algorithm, uint32(*paletteSize))
	if err != nil {
		log.Printf("error: %v", err)
		return exitArgumentError
	}

	strategy, cellCount, err := buildStrategy(*adaptive, uint32(*cols), uint32(*rows), uint32(*maxDepth), *varianceThreshold, uint32(*paletteSize), needsPalette, img)
	if err != nil {
		log.Printf("error: %v", err)
		return mapError(err)
	}

	bar := progress.NewBar("converting", int64(cellCount))
	conv := converter.New(strategy, ex, bar)

	if *redisProgress != "" {
		sink, err := progress.NewRedisSink(*redisProgress, fmt.Sprintf("%d", startTime.UnixNano()))
		if err != nil {
			log.Printf("warning: redis progress sink unavailable: %v", err)
		} else {
			defer sink.Close()
			conv.SetProgress(multiSink{bar, sink})
		}
	}

	out, err := conv.ConvertParallel(img)
	bar.Finish()
	if err != nil {
		log.Printf("error: converting: %v", err)
		return mapError(err)
	}

	outFile, err := os.Create(*outputPath)
	if err != nil {
		log.Printf("error: creating output: %v", err)
		return exitIOError
	}
	defer outFile.Close()

	outFormat := codec.FormatFromPath(*outputPath)
	if err := codec.Encode(outFile, out, outFormat, codec.EncodeOptions{Progressive: outFormat == codec.FormatJPEG}); err != nil {
		log.Printf("error: encoding output: %v", err)
		return exitIOError
	}

	duration := time.Since(startTime).Seconds()
	log.Printf("=== Conversion complete in %.2fs ===", duration)

	report := stats.Report{
		Strategy:   strategyName(*adaptive),
		Extractor:  *algorithm,
		InputPath:  *inputPath,
		OutputPath: *outputPath,
		Width:      img.Width,
		Height:     img.Height,
		CellCount:  cellCount,
		Workers:    runtime.NumCPU(),
		Parallel:   true,
		Duration:   duration,
		Timestamp:  startTime,
	}
	if histDir := filepath.Dir(*outputPath); histDir != "" {
		if err := stats.AppendHistory(filepath.Join(histDir, "pixelart_history.ndjson.gz"), report); err != nil {
			log.Printf("warning: could not append stats history: %v", err)
		}
	}

	return exitOK
}

func strategyName(adaptive bool) string {
	if adaptive {
		return "quadtree"
	}
	return "grid"
}

func buildExtractor(name string, paletteSize uint32) (extractor.Extractor, error) {
	switch name {
	case "average":
		return extractor.Average{}, nil
	case "median-cut":
		return extractor.MedianCut{TargetColors: paletteSize}, nil
	case "kmeans":
		return extractor.KMeans{K: paletteSize, MaxIterations: 50}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q: %w", name, pixelart.ErrInvalidParameter)
	}
}

func buildStrategy(adaptive bool, cols, rows, maxDepth uint32, varianceThreshold float64, paletteSize uint32, needsPalette bool, img *pixelart.Image) (converter.Strategy, int, error) {
	if adaptive {
		s := converter.QuadTreeStrategy{MaxDepth: maxDepth, VarianceThreshold: varianceThreshold}
		if needsPalette {
			s.PaletteSize = paletteSize
		}
		// cellCount is an estimate (actual leaf count is known only
		// after Build); the progress bar treats it as a denominator and
		// clamps overrun visually, so an estimate is sufficient.
		estimate := int(maxDepth+1) * 4
		return s, estimate, nil
	}
	if cols > img.Width || rows > img.Height {
		return nil, 0, fmt.Errorf("grid %dx%d exceeds image %dx%d: %w", cols, rows, img.Width, img.Height, pixelart.ErrInvalidDimensions)
	}
	return converter.GridStrategy{Cols: cols, Rows: rows}, int(cols * rows), nil
}

func mapError(err error) int {
	switch {
	case errors.Is(err, pixelart.ErrInvalidDimensions), errors.Is(err, pixelart.ErrInvalidParameter):
		return exitArgumentError
	default:
		return exitProcessing
	}
}

// multiSink fans a single OnCell call out to several sinks.
type multiSink []converter.ProgressSink

func (m multiSink) OnCell(a, b uint32) {
	for _, s := range m {
		s.OnCell(a, b)
	}
}
