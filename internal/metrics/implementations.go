// Metric implementations over preprocessed tensors
package metrics

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"industrial-image-preprocessing/internal/core"
)

func values(t core.Tensor) ([]float64, error) {
	if t.Len() == 0 {
		return nil, errors.New("empty tensor")
	}
	out := make([]float64, t.Len())
	for i, v := range t.Data {
		out[i] = float64(v)
	}
	return out, nil
}

// Minimum implements the smallest element metric
type Minimum struct{}

func NewMinimum() *Minimum {
	return &Minimum{}
}

func (m *Minimum) Calculate(t core.Tensor) (float64, error) {
	x, err := values(t)
	if err != nil {
		return 0, err
	}
	return floats.Min(x), nil
}

func (m *Minimum) GetName() string        { return "Minimum" }
func (m *Minimum) GetDescription() string { return "Smallest normalized pixel value" }

// Maximum implements the largest element metric
type Maximum struct{}

func NewMaximum() *Maximum {
	return &Maximum{}
}

func (m *Maximum) Calculate(t core.Tensor) (float64, error) {
	x, err := values(t)
	if err != nil {
		return 0, err
	}
	return floats.Max(x), nil
}

func (m *Maximum) GetName() string        { return "Maximum" }
func (m *Maximum) GetDescription() string { return "Largest normalized pixel value" }

// Mean implements the average intensity metric
type Mean struct{}

func NewMean() *Mean {
	return &Mean{}
}

func (m *Mean) Calculate(t core.Tensor) (float64, error) {
	x, err := values(t)
	if err != nil {
		return 0, err
	}
	return stat.Mean(x, nil), nil
}

func (m *Mean) GetName() string        { return "Mean" }
func (m *Mean) GetDescription() string { return "Average normalized pixel value" }

// Contrast implements global contrast as the standard deviation of all values
type Contrast struct{}

// NewContrast creates a new contrast metric
func NewContrast() *Contrast {
	return &Contrast{}
}

func (c *Contrast) Calculate(t core.Tensor) (float64, error) {
	x, err := values(t)
	if err != nil {
		return 0, err
	}
	if len(x) < 2 {
		return 0, nil
	}
	return stat.StdDev(x, nil), nil
}

func (c *Contrast) GetName() string {
	return "Contrast"
}

func (c *Contrast) GetDescription() string {
	return "Standard deviation of pixel values"
}

// Sharpness implements sharpness metric
type Sharpness struct{}

// NewSharpness creates a new sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(t core.Tensor) (float64, error) {
	mat, err := t.ToMat()
	if err != nil {
		return 0, err
	}
	defer mat.Close()

	gray, err := s.ensureGrayscale(mat)
	if err != nil {
		return 0, err
	}
	defer func() {
		if gray.Ptr() != mat.Ptr() {
			gray.Close()
		}
	}()

	// Variance of the Laplacian as sharpness measure
	laplacian := gocv.NewMat()
	defer laplacian.Close()
	if err := gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault); err != nil {
		return 0, errors.Wrap(err, "laplacian")
	}

	lt, err := core.TensorFromMat(laplacian)
	if err != nil {
		return 0, errors.Wrap(err, "read laplacian")
	}
	x, err := values(lt)
	if err != nil {
		return 0, err
	}
	return stat.Variance(x, nil), nil
}

func (s *Sharpness) ensureGrayscale(input gocv.Mat) (gocv.Mat, error) {
	if input.Channels() == 1 {
		return input, nil
	}

	gray := gocv.NewMat()
	if err := gocv.CvtColor(input, &gray, gocv.ColorRGBToGray); err != nil {
		gray.Close()
		return input, errors.Wrap(err, "convert to grayscale")
	}
	return gray, nil
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Variance of the Laplacian, higher means crisper edges"
}
