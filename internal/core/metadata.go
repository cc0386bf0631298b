package core

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// TimestampFormat is the layout of Metadata.Timestamp (YYYY-MM-DD HH:MM:SS).
const TimestampFormat = "2006-01-02 15:04:05"

// Metadata describes the decoded image before any resize.
type Metadata struct {
	OriginalResolution string `json:"original_resolution" yaml:"original_resolution"`
	Timestamp          string `json:"timestamp" yaml:"timestamp"`
}

func captureMetadata(raw gocv.Mat, now time.Time) Metadata {
	return Metadata{
		OriginalResolution: fmt.Sprintf("%dx%d", raw.Cols(), raw.Rows()),
		Timestamp:          now.Format(TimestampFormat),
	}
}
