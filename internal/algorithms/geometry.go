// Resize, normalization and rotation stages
package algorithms

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Resizer stretches an image to exactly Width x Height. Aspect ratio is not preserved.
type Resizer struct {
	Width  int
	Height int
}

func NewResizer(width, height int) *Resizer {
	return &Resizer{Width: width, Height: height}
}

func (r *Resizer) Apply(input gocv.Mat) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), errors.New("input image is empty")
	}
	if err := r.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	output := gocv.NewMat()
	if err := gocv.Resize(input, &output, image.Pt(r.Width, r.Height), 0, 0, gocv.InterpolationLinear); err != nil {
		output.Close()
		return gocv.NewMat(), errors.Wrap(err, "resize")
	}
	return output, nil
}

func (r *Resizer) GetName() string {
	return "Resize"
}

func (r *Resizer) GetDescription() string {
	return "Bilinear resize to the model input size"
}

func (r *Resizer) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Errorf("invalid target size: %dx%d", r.Width, r.Height)
	}
	return nil
}

// Normalizer maps an 8-bit image to float32 in [0, 1].
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Apply(input gocv.Mat) (gocv.Mat, error) {
	if err := requireChannels(input, 1, 3); err != nil {
		return gocv.NewMat(), err
	}
	if input.Type() != gocv.MatTypeCV8UC1 && input.Type() != gocv.MatTypeCV8UC3 {
		return gocv.NewMat(), errors.Errorf("expected 8-bit input, got type %v", input.Type())
	}

	output := gocv.NewMat()
	if err := input.ConvertTo(&output, gocv.MatTypeCV32F); err != nil {
		output.Close()
		return gocv.NewMat(), errors.Wrap(err, "convert to float32")
	}
	output.DivideFloat(255.0)
	return output, nil
}

func (n *Normalizer) GetName() string {
	return "Normalize"
}

func (n *Normalizer) GetDescription() string {
	return "Scales 8-bit pixels to float32 in [0, 1]"
}

func (n *Normalizer) Validate() error {
	return nil
}

// Rotate turns input by angle degrees (counter-clockwise) about its center,
// keeping its size. Uncovered pixels are filled with zero. The center is the
// integer pixel (cols/2, rows/2); gocv takes no fractional center, so odd
// sizes rotate about a point half a pixel up and left of cols/2.0, rows/2.0.
func Rotate(input gocv.Mat, angle float64) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), errors.New("input image is empty")
	}

	cols, rows := input.Cols(), input.Rows()
	m := gocv.GetRotationMatrix2D(image.Pt(cols/2, rows/2), angle, 1)
	defer m.Close()

	output := gocv.NewMat()
	if err := gocv.WarpAffine(input, &output, m, image.Pt(cols, rows)); err != nil {
		output.Close()
		return gocv.NewMat(), errors.Wrap(err, "warp affine")
	}
	return output, nil
}
