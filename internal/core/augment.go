package core

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"industrial-image-preprocessing/internal/algorithms"
)

// MaxRotationDegrees bounds the augmentation angle to [-10, 10] degrees.
const MaxRotationDegrees = 10.0

var (
	// ErrAugmentDisabled is returned by Augment on a standard-profile pipeline.
	ErrAugmentDisabled = errors.New("augmentation requires the enhanced profile")
	// ErrShapeMismatch is returned when a tensor was not produced by this pipeline's configuration.
	ErrShapeMismatch = errors.New("tensor shape does not match pipeline output")
)

// AngleSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type AngleSource interface {
	Float64() float64
}

// SampleAngle draws a rotation angle in [-MaxRotationDegrees, MaxRotationDegrees).
func (p *Pipeline) SampleAngle() float64 {
	p.anglesMu.Lock()
	u := p.angles.Float64()
	p.anglesMu.Unlock()

	return -MaxRotationDegrees + 2*MaxRotationDegrees*u
}

// Augment returns a randomly rotated copy of a finalized tensor, for training
// on variants of normal samples. The input is not modified.
func (p *Pipeline) Augment(t Tensor) (Tensor, error) {
	if !p.config.Enhanced {
		return Tensor{}, ErrAugmentDisabled
	}

	angle := p.SampleAngle()
	out, err := p.Rotate(t, angle)
	if err != nil {
		return Tensor{}, err
	}

	p.logger.WithField("angle", angle).Debug("PIPELINE: Augmented")
	return out, nil
}

// Rotate turns t by angle degrees about its center. Output size equals input
// size; pixels rotated in from outside are zero.
func (p *Pipeline) Rotate(t Tensor, angle float64) (Tensor, error) {
	want := [3]int{p.config.TargetHeight, p.config.TargetWidth, p.config.ColorMode.Channels()}
	if t.Shape() != want {
		return Tensor{}, errors.Wrapf(ErrShapeMismatch, "got %v, want %v", t.Shape(), want)
	}

	src, err := t.ToMat()
	if err != nil {
		return Tensor{}, err
	}
	defer src.Close()

	rotated, err := algorithms.Rotate(src, angle)
	if err != nil {
		return Tensor{}, errors.Wrap(err, "rotate")
	}
	defer rotated.Close()

	out, err := TensorFromMat(rotated)
	if err != nil {
		return Tensor{}, errors.Wrap(err, "build tensor")
	}

	p.logger.WithFields(logrus.Fields{
		"angle": angle,
		"shape": out.Shape(),
	}).Debug("PIPELINE: Rotated")
	return out, nil
}
