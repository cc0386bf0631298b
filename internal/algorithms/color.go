// Color space conversion for decoded BGR images
package algorithms

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ColorConverter converts a decoded BGR image to single-channel luminance or
// to RGB channel order. It performs no enhancement.
type ColorConverter struct {
	Grayscale bool
}

// NewColorConverter creates the standard color stage
func NewColorConverter(grayscale bool) *ColorConverter {
	return &ColorConverter{Grayscale: grayscale}
}

func (c *ColorConverter) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireChannels(input, 3); err != nil {
		return gocv.NewMat(), err
	}

	code := gocv.ColorBGRToRGB
	if c.Grayscale {
		code = gocv.ColorBGRToGray
	}

	output := gocv.NewMat()
	if err := gocv.CvtColor(input, &output, code); err != nil {
		output.Close()
		return gocv.NewMat(), errors.Wrapf(err, "%s failed", c.GetName())
	}
	return output, nil
}

func (c *ColorConverter) GetName() string {
	if c.Grayscale {
		return "BGR to Grayscale"
	}
	return "BGR to RGB"
}

func (c *ColorConverter) GetDescription() string {
	return "Converts codec channel order to luminance or RGB"
}

func (c *ColorConverter) Validate() error {
	return nil
}
