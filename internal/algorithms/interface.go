// Stage contract shared by the preprocessing pipeline
package algorithms

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Algorithm is one deterministic image stage. Apply never modifies input;
// the caller owns and must Close the returned Mat.
type Algorithm interface {
	Apply(input gocv.Mat) (gocv.Mat, error)
	GetName() string
	GetDescription() string
	Validate() error
}

func requireChannels(input gocv.Mat, want ...int) error {
	if input.Empty() {
		return errors.New("input image is empty")
	}
	for _, c := range want {
		if input.Channels() == c {
			return nil
		}
	}
	return errors.Errorf("unsupported number of channels: %d", input.Channels())
}
