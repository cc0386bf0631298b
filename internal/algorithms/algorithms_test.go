package algorithms

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func bgrImage(t *testing.T, width, height int, b, g, r float64) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), height, width, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func apply(t *testing.T, alg Algorithm, input gocv.Mat) gocv.Mat {
	t.Helper()
	out, err := alg.Apply(input)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestColorConverterSwapsToRGB(t *testing.T) {
	out := apply(t, NewColorConverter(false), bgrImage(t, 4, 4, 10, 20, 30))

	require.Equal(t, 3, out.Channels())
	px := out.GetVecbAt(1, 1)
	assert.Equal(t, []uint8{30, 20, 10}, []uint8{px[0], px[1], px[2]})
}

func TestColorConverterGrayscale(t *testing.T) {
	out := apply(t, NewColorConverter(true), bgrImage(t, 4, 4, 200, 200, 200))

	require.Equal(t, 1, out.Channels())
	assert.Equal(t, uint8(200), out.GetUCharAt(0, 0))
}

func TestColorConverterRejectsSingleChannel(t *testing.T) {
	gray := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	defer gray.Close()

	_, err := NewColorConverter(false).Apply(gray)
	assert.Error(t, err)
}

func TestContrastEnhancer(t *testing.T) {
	input := bgrImage(t, 64, 64, 90, 100, 110)
	require.NoError(t, gocv.Rectangle(&input, image.Rect(20, 20, 40, 40), color.RGBA{R: 120, G: 110, B: 100}, -1))

	t.Run("grayscale", func(t *testing.T) {
		ce, err := NewContrastEnhancer(2.0, image.Pt(8, 8), true)
		require.NoError(t, err)
		defer ce.Close()

		out := apply(t, ce, input)
		assert.Equal(t, 1, out.Channels())
		assert.Equal(t, 64, out.Cols())
		assert.Equal(t, 64, out.Rows())
	})

	t.Run("lab lightness", func(t *testing.T) {
		ce, err := NewContrastEnhancer(2.0, image.Pt(8, 8), false)
		require.NoError(t, err)
		defer ce.Close()

		out := apply(t, ce, input)
		assert.Equal(t, 3, out.Channels())
		assert.Equal(t, gocv.MatTypeCV8UC3, out.Type())
	})

	t.Run("reusable across calls", func(t *testing.T) {
		ce, err := NewContrastEnhancer(2.0, image.Pt(4, 4), true)
		require.NoError(t, err)
		defer ce.Close()

		first := apply(t, ce, input)
		second := apply(t, ce, input)

		diff := gocv.NewMat()
		defer diff.Close()
		gocv.AbsDiff(first, second, &diff)
		assert.Equal(t, 0, gocv.CountNonZero(diff))
	})
}

// warmRamp is a low-contrast BGR image: brightness rises from 100 to 131
// left to right under a constant warm tint.
func warmRamp(t *testing.T, size int) gocv.Mat {
	t.Helper()
	buf := make([]byte, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(100 + x*32/size)
			i := (y*size + x) * 3
			buf[i], buf[i+1], buf[i+2] = v, v+4, v+12
		}
	}
	wrapped, err := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC3, buf)
	require.NoError(t, err)
	defer wrapped.Close()

	mat := wrapped.Clone()
	t.Cleanup(func() { mat.Close() })
	return mat
}

func labChannels(t *testing.T, input gocv.Mat, code gocv.ColorConversionCode) []gocv.Mat {
	t.Helper()
	lab := gocv.NewMat()
	defer lab.Close()
	require.NoError(t, gocv.CvtColor(input, &lab, code))

	channels := gocv.Split(lab)
	require.Len(t, channels, 3)
	t.Cleanup(func() {
		for _, ch := range channels {
			ch.Close()
		}
	})
	return channels
}

func spread(ch gocv.Mat) float32 {
	lo, hi, _, _ := gocv.MinMaxLoc(ch)
	return hi - lo
}

func meanAbsDiff(a, b gocv.Mat) float64 {
	var sum float64
	for y := 0; y < a.Rows(); y++ {
		for x := 0; x < a.Cols(); x++ {
			d := float64(a.GetUCharAt(y, x)) - float64(b.GetUCharAt(y, x))
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return sum / float64(a.Rows()*a.Cols())
}

func TestContrastEnhancerStretchesLightnessOnly(t *testing.T) {
	input := warmRamp(t, 128)

	ce, err := NewContrastEnhancer(2.0, image.Pt(2, 2), false)
	require.NoError(t, err)
	defer ce.Close()

	out := apply(t, ce, input)
	before := labChannels(t, input, gocv.ColorBGRToLab)
	after := labChannels(t, out, gocv.ColorRGBToLab)

	assert.Greater(t, spread(after[0]), spread(before[0]), "lightness spread should widen")
	assert.LessOrEqual(t, meanAbsDiff(before[1], after[1]), 3.0, "a channel changed")
	assert.LessOrEqual(t, meanAbsDiff(before[2], after[2]), 3.0, "b channel changed")
}

func TestContrastEnhancerStretchesLuminance(t *testing.T) {
	input := warmRamp(t, 128)
	gray := gocv.NewMat()
	defer gray.Close()
	require.NoError(t, gocv.CvtColor(input, &gray, gocv.ColorBGRToGray))

	ce, err := NewContrastEnhancer(2.0, image.Pt(2, 2), true)
	require.NoError(t, err)
	defer ce.Close()

	out := apply(t, ce, input)
	assert.Greater(t, spread(out), spread(gray))
}

func TestContrastEnhancerValidate(t *testing.T) {
	_, err := NewContrastEnhancer(0, image.Pt(8, 8), true)
	assert.Error(t, err)

	_, err = NewContrastEnhancer(2, image.Pt(0, 8), true)
	assert.Error(t, err)
}

func TestGaussianFilterKeepsUniformImage(t *testing.T) {
	out := apply(t, NewGaussianFilter(3, 0), bgrImage(t, 16, 16, 255, 255, 255))

	px := out.GetVecbAt(0, 0)
	assert.Equal(t, uint8(255), px[0])
	px = out.GetVecbAt(8, 8)
	assert.Equal(t, uint8(255), px[2])
}

func TestFilterValidation(t *testing.T) {
	assert.Error(t, NewGaussianFilter(4, 0).Validate())
	assert.Error(t, NewGaussianFilter(3, -1).Validate())
	assert.NoError(t, NewGaussianFilter(3, 0).Validate())

	assert.Error(t, NewBilateralFilter(0, 75, 75).Validate())
	assert.Error(t, NewBilateralFilter(5, 0, 75).Validate())
	assert.Error(t, NewBilateralFilter(5, 75, -1).Validate())
	assert.NoError(t, NewBilateralFilter(5, 75, 75).Validate())
}

func TestBilateralFilterPreservesSize(t *testing.T) {
	out := apply(t, NewBilateralFilter(5, 75, 75), bgrImage(t, 33, 17, 1, 2, 3))

	assert.Equal(t, 33, out.Cols())
	assert.Equal(t, 17, out.Rows())
	assert.Equal(t, 3, out.Channels())
}

// stepEdge is black-ish on the left half and bright on the right half.
func stepEdge(t *testing.T, width, height int) gocv.Mat {
	t.Helper()
	input := bgrImage(t, width, height, 50, 50, 50)
	require.NoError(t, gocv.Rectangle(&input, image.Rect(width/2, 0, width, height), color.RGBA{R: 200, G: 200, B: 200}, -1))
	return input
}

func TestBilateralFilterKeepsEdgeSharperThanGaussian(t *testing.T) {
	input := stepEdge(t, 32, 16)
	edge := 16

	bilateral := apply(t, NewBilateralFilter(5, 75, 75), input)
	gaussian := apply(t, NewGaussianFilter(5, 0), input)

	jump := func(m gocv.Mat) int {
		left := m.GetVecbAt(8, edge-1)
		right := m.GetVecbAt(8, edge)
		return int(right[0]) - int(left[0])
	}
	assert.Greater(t, jump(bilateral), jump(gaussian))
	// Flat regions away from the edge are untouched by both.
	assert.Equal(t, uint8(50), bilateral.GetVecbAt(8, 2)[0])
	assert.Equal(t, uint8(50), gaussian.GetVecbAt(8, 2)[0])
}

func TestResizerStretches(t *testing.T) {
	out := apply(t, NewResizer(100, 50), bgrImage(t, 500, 500, 0, 0, 0))

	assert.Equal(t, 100, out.Cols())
	assert.Equal(t, 50, out.Rows())
	assert.Error(t, NewResizer(0, 10).Validate())
}

func TestNormalizer(t *testing.T) {
	out := apply(t, NewNormalizer(), bgrImage(t, 4, 4, 0, 51, 255))

	require.Equal(t, gocv.MatTypeCV32FC3, out.Type())
	data, err := out.DataPtrFloat32()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, data[0], 1e-6)
	assert.InDelta(t, 0.2, data[1], 1e-6)
	assert.InDelta(t, 1.0, data[2], 1e-6)
}

func TestNormalizerRejectsFloatInput(t *testing.T) {
	f := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV32FC1)
	defer f.Close()

	_, err := NewNormalizer().Apply(f)
	assert.Error(t, err)
}

func TestRotateKeepsSize(t *testing.T) {
	input := bgrImage(t, 40, 30, 255, 255, 255)

	out, err := Rotate(input, 10)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 40, out.Cols())
	assert.Equal(t, 30, out.Rows())
	// Corners rotate out of the frame and are zero-filled.
	px := out.GetVecbAt(0, 0)
	assert.Equal(t, uint8(0), px[0])
}

func TestRotateZeroIsIdentity(t *testing.T) {
	input := bgrImage(t, 20, 20, 5, 6, 7)

	out, err := Rotate(input, 0)
	require.NoError(t, err)
	defer out.Close()

	px := out.GetVecbAt(10, 10)
	assert.Equal(t, []uint8{5, 6, 7}, []uint8{px[0], px[1], px[2]})
}
