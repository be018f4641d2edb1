// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dcl"
	subsystem = "metamorph"
)

// conversionLabels label every duration histogram with the source size
// bucket and the target format name.
var conversionLabels = []string{"size_bucket", "format"}

var (
	// StaticImageDuration observes wall-clock seconds spent converting
	// static images to texture containers.
	StaticImageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "static_image_duration_seconds",
			Help:      "Duration of static image conversions",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		conversionLabels,
	)

	// MotionImageDuration observes wall-clock seconds spent converting
	// animated images (frame extraction + video encode).
	MotionImageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "motion_image_duration_seconds",
			Help:      "Duration of animated image conversions",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		conversionLabels,
	)

	// MotionVideoDuration observes wall-clock seconds spent converting
	// video sources.
	MotionVideoDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "motion_video_duration_seconds",
			Help:      "Duration of video conversions",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		conversionLabels,
	)

	// ConversionsTotal counts completed conversion attempts.
	// Labels:
	//   - class: StaticImage, MotionImage, MotionVideo
	//   - format: UASTC, ASTC, ASTC_HIGH, MP4, OGV
	//   - status: success, failure
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conversions_total",
			Help:      "Total number of conversion attempts",
		},
		[]string{"class", "format", "status"},
	)

	// RefreshHintsTotal counts expiry hints entering the refresh pipeline.
	// Labels:
	//   - result: queued (newly pending), deduped (already pending), dropped
	RefreshHintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "refresh_hints_total",
			Help:      "Total number of cache refresh hints",
		},
		[]string{"result"},
	)
)

// Conversion status constants.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Refresh hint result constants.
const (
	RefreshQueued  = "queued"
	RefreshDeduped = "deduped"
	RefreshDropped = "dropped"
)

// Size bucket boundaries in bytes.
const (
	mib = 1 << 20
)

// SizeBucket maps a source file size onto the histogram's size_bucket label.
func SizeBucket(bytes int64) string {
	switch {
	case bytes < mib:
		return "<1MB"
	case bytes < 5*mib:
		return "1-5MB"
	case bytes < 10*mib:
		return "5-10MB"
	default:
		return ">10MB"
	}
}
