// internal/core/pipeline.go
// Preprocessing pipeline: load, color/enhance, smooth, resize, normalize
package core

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"industrial-image-preprocessing/internal/algorithms"
	imageio "industrial-image-preprocessing/internal/io"
)

// Standard profile blur: 3x3 kernel, sigma derived from the kernel size.
const (
	blurKernelSize = 3
	blurSigma      = 0
)

// Result is the output of one Preprocess call. Metadata is nil for the
// standard profile.
type Result struct {
	Tensor   Tensor
	Metadata *Metadata
}

// Pipeline converts one image per call into a normalized tensor. The
// configuration and stages are read-only after New, so a Pipeline may be used
// from several goroutines at once.
type Pipeline struct {
	config Config
	logger logrus.FieldLogger
	loader *imageio.ImageLoader

	stages   []algorithms.Algorithm
	enhancer *algorithms.ContrastEnhancer

	anglesMu sync.Mutex
	angles   AngleSource
	now      func() time.Time
}

// Option customizes a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger routes stage traces to logger. The default discards them.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRand sets the source of augmentation angles.
func WithRand(src AngleSource) Option {
	return func(p *Pipeline) {
		if src != nil {
			p.angles = src
		}
	}
}

// WithClock sets the clock used for Metadata.Timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New validates cfg and builds the stage list for its profile.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	p := &Pipeline{
		config: cfg,
		logger: discard,
		angles: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loader = imageio.NewImageLoader(p.logger)

	grayscale := cfg.ColorMode == ColorGrayscale
	if cfg.Enhanced {
		enhancer, err := algorithms.NewContrastEnhancer(cfg.ClipLimit, cfg.TileGrid(), grayscale)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidConfig, err.Error())
		}
		p.enhancer = enhancer
		p.stages = []algorithms.Algorithm{
			enhancer,
			algorithms.NewBilateralFilter(cfg.DenoiseNeighborhood, cfg.DenoiseSigmaColor, cfg.DenoiseSigmaSpace),
		}
	} else {
		p.stages = []algorithms.Algorithm{
			algorithms.NewColorConverter(grayscale),
			algorithms.NewGaussianFilter(blurKernelSize, blurSigma),
		}
	}
	p.stages = append(p.stages,
		algorithms.NewResizer(cfg.TargetWidth, cfg.TargetHeight),
		algorithms.NewNormalizer(),
	)

	for _, stage := range p.stages {
		if err := stage.Validate(); err != nil {
			p.Close()
			return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", stage.GetName(), err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"target_width":  cfg.TargetWidth,
		"target_height": cfg.TargetHeight,
		"color_mode":    cfg.ColorMode,
		"enhanced":      cfg.Enhanced,
		"stages":        len(p.stages),
	}).Debug("PIPELINE: Created")

	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.config
}

// Preprocess loads src and runs every stage. A source that cannot be loaded
// fails with an error matching imageio.ErrNotFound and no tensor.
func (p *Pipeline) Preprocess(src imageio.Source) (Result, error) {
	start := time.Now()

	raw, err := p.loader.Load(src)
	if err != nil {
		return Result{}, errors.Wrap(err, "could not load image")
	}
	defer raw.Close()

	var result Result
	if p.config.Enhanced {
		meta := captureMetadata(raw, p.now())
		result.Metadata = &meta
	}

	processed, err := p.runStages(raw)
	if err != nil {
		return Result{}, err
	}
	defer processed.Close()

	tensor, err := TensorFromMat(processed)
	if err != nil {
		return Result{}, errors.Wrap(err, "build tensor")
	}
	result.Tensor = tensor

	p.logger.WithFields(logrus.Fields{
		"source":   src.Kind().String(),
		"width":    raw.Cols(),
		"height":   raw.Rows(),
		"shape":    tensor.Shape(),
		"duration": time.Since(start),
	}).Debug("PIPELINE: Image processed")

	return result, nil
}

// PreprocessFile is Preprocess over a filesystem path.
func (p *Pipeline) PreprocessFile(path string) (Result, error) {
	return p.Preprocess(imageio.FromPath(path))
}

// PreprocessBytes is Preprocess over an encoded image buffer.
func (p *Pipeline) PreprocessBytes(data []byte) (Result, error) {
	return p.Preprocess(imageio.FromBytes(data))
}

func (p *Pipeline) runStages(raw gocv.Mat) (gocv.Mat, error) {
	current := raw.Clone()
	for i, stage := range p.stages {
		stageStart := time.Now()

		result, err := stage.Apply(current)
		current.Close()
		if err != nil {
			return gocv.NewMat(), errors.Wrapf(err, "stage %d (%s)", i, stage.GetName())
		}
		if result.Empty() {
			result.Close()
			return gocv.NewMat(), errors.Errorf("stage %d (%s) returned empty result", i, stage.GetName())
		}

		p.logger.WithFields(logrus.Fields{
			"stage":    stage.GetName(),
			"width":    result.Cols(),
			"height":   result.Rows(),
			"channels": result.Channels(),
			"duration": time.Since(stageStart),
		}).Debug("PIPELINE: Stage applied")

		current = result
	}
	return current, nil
}

// Close releases native resources held by the enhancement stage.
func (p *Pipeline) Close() error {
	if p.enhancer == nil {
		return nil
	}
	return p.enhancer.Close()
}
