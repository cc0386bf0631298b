// Industrial Image Preprocessing - demo driver
// Preprocesses one image (or a synthesized capture) and reports the tensor.

package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"industrial-image-preprocessing/internal/core"
	imageio "industrial-image-preprocessing/internal/io"
	"industrial-image-preprocessing/internal/metrics"
)

const (
	AppName    = "Industrial Image Preprocessing"
	AppVersion = "1.0.0"

	demoSize = 500
)

type options struct {
	configPath string
	input      string
	width      int
	height     int
	grayscale  bool
	enhanced   bool
	noise      bool
	augment    int
	seed       int64
	dumpDir    string
	debug      bool

	// names of flags given on the command line
	set map[string]bool
}

func main() {
	opts := parseFlags()

	logger := initLogger(opts.debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": opts.debug,
	}).Info("Starting " + AppName)

	if err := run(opts, logger); err != nil {
		logger.WithError(err).Error("Preprocessing failed")
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML pipeline configuration")
	flag.StringVar(&opts.input, "input", "", "Image file to preprocess (default: synthesized capture)")
	flag.IntVar(&opts.width, "width", 224, "Target width")
	flag.IntVar(&opts.height, "height", 224, "Target height")
	flag.BoolVar(&opts.grayscale, "grayscale", false, "Single-channel output")
	flag.BoolVar(&opts.enhanced, "enhanced", false, "Industrial profile: CLAHE, bilateral denoise, metadata")
	flag.BoolVar(&opts.noise, "noise", false, "Synthesize random noise instead of a filled rectangle")
	flag.IntVar(&opts.augment, "augment", 0, "Number of rotated variants to generate (enhanced profile)")
	flag.Int64Var(&opts.seed, "seed", 0, "Seed for synthesis and augmentation (0: time based)")
	flag.StringVar(&opts.dumpDir, "dump", "", "Directory to write processed PNGs into")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: core.TimestampFormat,
		})
	}

	return logger
}

// buildConfig layers explicitly set flags over the config file (or defaults).
func buildConfig(opts options) (core.Config, error) {
	cfg := core.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := core.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if opts.set["width"] {
		cfg.TargetWidth = opts.width
	}
	if opts.set["height"] {
		cfg.TargetHeight = opts.height
	}
	if opts.set["grayscale"] {
		cfg.ColorMode = core.ColorRGB
		if opts.grayscale {
			cfg.ColorMode = core.ColorGrayscale
		}
	}
	if opts.set["enhanced"] {
		cfg.Enhanced = opts.enhanced
	}
	return cfg, nil
}

func run(opts options, logger *logrus.Logger) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pipeline, err := core.New(cfg, core.WithLogger(logger), core.WithRand(rand.New(rand.NewSource(seed+1))))
	if err != nil {
		return err
	}
	defer pipeline.Close()

	src, err := resolveSource(opts, rng)
	if err != nil {
		return err
	}

	result, err := pipeline.Preprocess(src)
	if err != nil {
		return err
	}

	report := metrics.NewEvaluator().GenerateReport(result.Tensor)
	fields := logrus.Fields{
		"shape":       result.Tensor.Shape(),
		"dtype":       "float32",
		"value_range": fmt.Sprintf("%.4f to %.4f", report.Metrics["min"], report.Metrics["max"]),
		"batch_shape": result.Tensor.BatchShape(),
	}
	for name, value := range report.Metrics {
		fields["metric_"+name] = value
	}
	if result.Metadata != nil {
		fields["original_resolution"] = result.Metadata.OriginalResolution
		fields["captured_at"] = result.Metadata.Timestamp
	}
	logger.WithFields(fields).Info("Image preprocessed")
	for _, issue := range report.Issues {
		logger.WithField("issue", issue).Warn("Suspicious tensor")
	}

	if err := dump(opts.dumpDir, "processed.png", result.Tensor); err != nil {
		return err
	}

	for i := 0; i < opts.augment; i++ {
		variant, err := pipeline.Augment(result.Tensor)
		if err != nil {
			return err
		}
		if err := dump(opts.dumpDir, fmt.Sprintf("augmented_%03d.png", i), variant); err != nil {
			return err
		}
	}
	if opts.augment > 0 {
		logger.WithField("count", opts.augment).Info("Augmented variants generated")
	}

	return nil
}

func resolveSource(opts options, rng *rand.Rand) (imageio.Source, error) {
	if opts.input != "" {
		return imageio.FromPath(opts.input), nil
	}

	capture, err := synthesizeCapture(opts.noise, rng)
	if err != nil {
		return imageio.Source{}, err
	}
	defer capture.Close()

	data, err := imageio.EncodeImage(capture, gocv.JPEGFileExt)
	if err != nil {
		return imageio.Source{}, err
	}
	return imageio.FromBytes(data), nil
}

// synthesizeCapture builds a 500x500 BGR test image: either a filled blue
// rectangle on black or uniform random noise.
func synthesizeCapture(noise bool, rng *rand.Rand) (gocv.Mat, error) {
	if noise {
		buf := make([]byte, demoSize*demoSize*3)
		rng.Read(buf)
		mat, err := gocv.NewMatFromBytes(demoSize, demoSize, gocv.MatTypeCV8UC3, buf)
		if err != nil {
			return gocv.NewMat(), errors.Wrap(err, "synthesize noise")
		}
		defer mat.Close()
		return mat.Clone(), nil
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), demoSize, demoSize, gocv.MatTypeCV8UC3)
	if err := gocv.Rectangle(&mat, image.Rect(50, 50, 450, 450), color.RGBA{B: 255}, -1); err != nil {
		mat.Close()
		return gocv.NewMat(), errors.Wrap(err, "draw rectangle")
	}
	return mat, nil
}

func dump(dir, name string, t core.Tensor) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create dump directory")
	}

	img, err := t.ToImage()
	if err != nil {
		return err
	}
	defer img.Close()

	return imageio.SaveImage(img, filepath.Join(dir, name))
}
