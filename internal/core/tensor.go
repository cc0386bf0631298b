// Float32 HWC tensors produced by the pipeline
package core

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Tensor is a (Height, Width, Channels) float32 array stored row-major with
// channels innermost. Channels is 1 or 3.
type Tensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// Shape returns (height, width, channels).
func (t Tensor) Shape() [3]int {
	return [3]int{t.Height, t.Width, t.Channels}
}

// BatchShape is the shape a model expects after the caller adds a leading
// batch dimension of one.
func (t Tensor) BatchShape() [4]int {
	return [4]int{1, t.Height, t.Width, t.Channels}
}

// Len is the number of float32 values, Height*Width*Channels.
func (t Tensor) Len() int {
	return len(t.Data)
}

// At returns the value at row y, column x, channel c.
func (t Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

func (t Tensor) validate() error {
	if t.Height <= 0 || t.Width <= 0 {
		return errors.Errorf("invalid tensor dimensions: %dx%d", t.Width, t.Height)
	}
	if t.Channels != 1 && t.Channels != 3 {
		return errors.Errorf("unsupported number of channels: %d", t.Channels)
	}
	if len(t.Data) != t.Height*t.Width*t.Channels {
		return errors.Errorf("tensor data length %d does not match shape %v", len(t.Data), t.Shape())
	}
	return nil
}

// TensorFromMat copies a CV_32F Mat with 1 or 3 channels into a new Tensor.
func TensorFromMat(mat gocv.Mat) (Tensor, error) {
	if mat.Empty() {
		return Tensor{}, errors.New("image is empty")
	}
	if mat.Type() != gocv.MatTypeCV32FC1 && mat.Type() != gocv.MatTypeCV32FC3 {
		return Tensor{}, errors.Errorf("expected float32 image with 1 or 3 channels, got type %v", mat.Type())
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	data, err := src.DataPtrFloat32()
	if err != nil {
		return Tensor{}, errors.Wrap(err, "read float32 data")
	}

	t := Tensor{
		Height:   mat.Rows(),
		Width:    mat.Cols(),
		Channels: mat.Channels(),
		Data:     make([]float32, len(data)),
	}
	copy(t.Data, data)
	return t, t.validate()
}

// ToMat copies the tensor into a new CV_32F Mat. The caller must Close it.
func (t Tensor) ToMat() (gocv.Mat, error) {
	if err := t.validate(); err != nil {
		return gocv.NewMat(), err
	}

	mt := gocv.MatTypeCV32FC3
	if t.Channels == 1 {
		mt = gocv.MatTypeCV32FC1
	}

	mat := gocv.NewMatWithSize(t.Height, t.Width, mt)
	dst, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return gocv.NewMat(), errors.Wrap(err, "access float32 data")
	}
	copy(dst, t.Data)
	return mat, nil
}

// ToImage converts the tensor back to an 8-bit Mat in codec (BGR) channel
// order, suitable for io.SaveImage or io.EncodeImage.
func (t Tensor) ToImage() (gocv.Mat, error) {
	f, err := t.ToMat()
	if err != nil {
		return gocv.NewMat(), err
	}
	defer f.Close()

	f.MultiplyFloat(255.0)
	u8 := gocv.NewMat()
	if err := f.ConvertTo(&u8, gocv.MatTypeCV8U); err != nil {
		u8.Close()
		return gocv.NewMat(), errors.Wrap(err, "convert to 8-bit")
	}
	if t.Channels == 1 {
		return u8, nil
	}

	defer u8.Close()
	bgr := gocv.NewMat()
	if err := gocv.CvtColor(u8, &bgr, gocv.ColorRGBToBGR); err != nil {
		bgr.Close()
		return gocv.NewMat(), errors.Wrap(err, "convert to BGR")
	}
	return bgr, nil
}
