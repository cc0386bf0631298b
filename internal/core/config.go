// Pipeline configuration, defaults and validation
package core

import (
	"image"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by New and LoadConfig for unusable settings.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// ColorMode selects the channel layout of the output tensor.
type ColorMode string

const (
	ColorRGB       ColorMode = "rgb"
	ColorGrayscale ColorMode = "grayscale"
)

// Channels is 1 for grayscale and 3 for rgb.
func (m ColorMode) Channels() int {
	if m == ColorGrayscale {
		return 1
	}
	return 3
}

// Config is fixed at pipeline construction.
type Config struct {
	TargetWidth  int       `yaml:"target_width" validate:"gt=0,lte=16384"`
	TargetHeight int       `yaml:"target_height" validate:"gt=0,lte=16384"`
	ColorMode    ColorMode `yaml:"color_mode" validate:"oneof=rgb grayscale"`

	// Enhanced selects the industrial profile: CLAHE, bilateral denoise,
	// metadata capture and augmentation.
	Enhanced bool `yaml:"enhanced"`

	// Enhancement parameters are only required by the enhanced profile.
	ClipLimit float64 `yaml:"clip_limit" validate:"required_if=Enhanced true,omitempty,gt=0"`
	TileGridX int     `yaml:"tile_grid_x" validate:"required_if=Enhanced true,omitempty,gt=0"`
	TileGridY int     `yaml:"tile_grid_y" validate:"required_if=Enhanced true,omitempty,gt=0"`

	DenoiseNeighborhood int     `yaml:"denoise_neighborhood" validate:"required_if=Enhanced true,omitempty,gt=0"`
	DenoiseSigmaColor   float64 `yaml:"denoise_sigma_color" validate:"required_if=Enhanced true,omitempty,gt=0"`
	DenoiseSigmaSpace   float64 `yaml:"denoise_sigma_space" validate:"required_if=Enhanced true,omitempty,gt=0"`
}

// DefaultConfig returns the standard 224x224 rgb profile with the
// enhancement parameters pre-filled.
func DefaultConfig() Config {
	return Config{
		TargetWidth:         224,
		TargetHeight:        224,
		ColorMode:           ColorRGB,
		Enhanced:            false,
		ClipLimit:           2.0,
		TileGridX:           8,
		TileGridY:           8,
		DenoiseNeighborhood: 5,
		DenoiseSigmaColor:   75,
		DenoiseSigmaSpace:   75,
	}
}

// TargetSize returns the output width and height as a point.
func (c Config) TargetSize() image.Point {
	return image.Pt(c.TargetWidth, c.TargetHeight)
}

// TileGrid returns the CLAHE tile grid as a point.
func (c Config) TileGrid() image.Point {
	return image.Pt(c.TileGridX, c.TileGridY)
}

var validate = validator.New()

// Validate reports every offending field wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fe.Field()+" must satisfy "+fe.Tag()+"="+fe.Param())
		} else {
			msgs = append(msgs, fe.Field()+" must satisfy "+fe.Tag())
		}
	}
	return errors.Wrap(ErrInvalidConfig, strings.Join(msgs, "; "))
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file
// keep their default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrInvalidConfig, "parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
