// Image loading from paths or encoded buffers, plus encoding helpers
package io

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrNotFound is returned when no decodable image could be produced from a
// source. A missing path, unreadable bytes and a corrupt encoding all map to it.
var ErrNotFound = errors.New("image not found or not decodable")

// SourceKind tags which variant a Source holds.
type SourceKind int

const (
	SourceInvalid SourceKind = iota
	SourcePath
	SourceBytes
)

func (k SourceKind) String() string {
	switch k {
	case SourcePath:
		return "path"
	case SourceBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Source is either a filesystem path or an in-memory encoded image.
// The zero value is an invalid source.
type Source struct {
	kind SourceKind
	path string
	data []byte
}

// FromPath builds a source that reads the image file at path.
func FromPath(path string) Source {
	return Source{kind: SourcePath, path: path}
}

// FromBytes builds a source over encoded image bytes (JPEG, PNG, ...).
// The buffer is only read.
func FromBytes(data []byte) Source {
	return Source{kind: SourceBytes, data: data}
}

// Kind reports which variant the source holds.
func (s Source) Kind() SourceKind { return s.kind }

// Path is the file path of a SourcePath source, empty otherwise.
func (s Source) Path() string { return s.path }

// Bytes is the encoded buffer of a SourceBytes source, nil otherwise.
func (s Source) Bytes() []byte { return s.data }

func (s Source) String() string {
	switch s.kind {
	case SourcePath:
		return s.path
	case SourceBytes:
		return "<" + strconv.Itoa(len(s.data)) + " bytes>"
	default:
		return "<invalid source>"
	}
}

// ImageLoader decodes sources into 3-channel BGR Mats.
type ImageLoader struct {
	logger logrus.FieldLogger
}

// NewImageLoader creates a loader that traces decodes on logger.
func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// Load decodes the source. The caller owns the returned Mat and must Close it.
func (il *ImageLoader) Load(src Source) (gocv.Mat, error) {
	var (
		mat gocv.Mat
		err error
	)

	switch src.kind {
	case SourcePath:
		mat, err = il.loadPath(src.path)
	case SourceBytes:
		mat, err = il.loadBytes(src.data)
	default:
		return gocv.NewMat(), errors.Wrap(ErrNotFound, "invalid source kind")
	}
	if err != nil {
		return gocv.NewMat(), err
	}

	if err := validateDecoded(mat); err != nil {
		mat.Close()
		return gocv.NewMat(), errors.Wrapf(ErrNotFound, "%s: %v", src, err)
	}

	il.logger.WithFields(logrus.Fields{
		"source":   src.kind.String(),
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Debug("Image loaded")

	return mat, nil
}

func (il *ImageLoader) loadPath(path string) (gocv.Mat, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrNotFound, "%s: %v", path, err)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Wrapf(ErrNotFound, "failed to decode %s", path)
	}
	return mat, nil
}

func (il *ImageLoader) loadBytes(data []byte) (gocv.Mat, error) {
	il.logger.WithField("size", len(data)).Debug("Decoding image buffer")

	if len(data) == 0 {
		return gocv.NewMat(), errors.Wrap(ErrNotFound, "empty image buffer")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrNotFound, "failed to decode buffer: %v", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Wrap(ErrNotFound, "failed to decode buffer")
	}
	return mat, nil
}

func validateDecoded(mat gocv.Mat) error {
	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return errors.Errorf("invalid image dimensions: %dx%d", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 3 {
		return errors.Errorf("unexpected channel count after decode: %d", mat.Channels())
	}
	return nil
}

// EncodeImage encodes mat in the format named by ext (".png", ".jpg", ...).
func EncodeImage(mat gocv.Mat, ext gocv.FileExt) ([]byte, error) {
	if mat.Empty() {
		return nil, errors.New("cannot encode empty image")
	}

	buf, err := gocv.IMEncode(ext, mat)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", ext)
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close releases.
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// SaveImage writes an 8-bit BGR or grayscale mat to path.
func SaveImage(mat gocv.Mat, path string) error {
	if mat.Empty() {
		return errors.New("cannot save empty image")
	}

	if !IsSupportedImageFormat(path) {
		return errors.Errorf("unsupported image format: %s", path)
	}

	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("failed to save image: %s", path)
	}
	return nil
}

// IsSupportedImageFormat reports whether path has an extension SaveImage can write.
func IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"} {
		if ext == format {
			return true
		}
	}
	return false
}
