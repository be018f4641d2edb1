package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MediaClass is the broad category a downloaded source file falls into.
// It decides which conversion path a job takes and which target format
// applies at lookup time.
type MediaClass int

const (
	// MediaClassOther means the file could not be classified.
	MediaClassOther MediaClass = iota
	// MediaClassStaticImage is a single-frame image (PNG, JPEG, static WebP, SVG).
	MediaClassStaticImage
	// MediaClassMotionImage is an animated image (animated WebP) that needs
	// frame extraction before video encoding.
	MediaClassMotionImage
	// MediaClassMotionVideo is anything the video encoder consumes natively,
	// including GIF.
	MediaClassMotionVideo
)

func (c MediaClass) String() string {
	switch c {
	case MediaClassStaticImage:
		return "StaticImage"
	case MediaClassMotionImage:
		return "MotionImage"
	case MediaClassMotionVideo:
		return "MotionVideo"
	default:
		return "Other"
	}
}

// Tag returns the value stored under the filetype cache key. Both motion
// classes produce a video artifact, so they share the "Video" tag.
func (c MediaClass) Tag() string {
	switch c {
	case MediaClassStaticImage:
		return "Image"
	case MediaClassMotionImage, MediaClassMotionVideo:
		return "Video"
	default:
		return ""
	}
}

// ParseMediaClassTag is the inverse of Tag. It reports whether the stored
// artifact for a hash is an image or a video.
func ParseMediaClassTag(tag string) (MediaClass, bool) {
	switch tag {
	case "Image":
		return MediaClassStaticImage, true
	case "Video":
		return MediaClassMotionVideo, true
	default:
		return MediaClassOther, false
	}
}

// ImageFormat selects the texture-container encoding for static images.
// The integer values are part of the queue wire format.
type ImageFormat int

const (
	ImageFormatUASTC ImageFormat = iota
	ImageFormatASTC
	ImageFormatASTCHigh
)

func (f ImageFormat) String() string {
	switch f {
	case ImageFormatASTC:
		return "ASTC"
	case ImageFormatASTCHigh:
		return "ASTC_HIGH"
	default:
		return "UASTC"
	}
}

func (f ImageFormat) IsValid() bool {
	switch f {
	case ImageFormatUASTC, ImageFormatASTC, ImageFormatASTCHigh:
		return true
	default:
		return false
	}
}

// Extension returns the artifact file extension. All image targets produce
// a KTX2 texture container.
func (f ImageFormat) Extension() string {
	return ".ktx2"
}

// ParseImageFormat converts the textual query-parameter form.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch s {
	case "", "UASTC":
		return ImageFormatUASTC, nil
	case "ASTC":
		return ImageFormatASTC, nil
	case "ASTC_HIGH":
		return ImageFormatASTCHigh, nil
	default:
		return ImageFormatUASTC, fmt.Errorf("unknown image format %q", s)
	}
}

// VideoFormat selects the container/codec for motion sources.
// The integer values are part of the queue wire format.
type VideoFormat int

const (
	VideoFormatMP4 VideoFormat = iota
	VideoFormatOGV
)

func (f VideoFormat) String() string {
	switch f {
	case VideoFormatOGV:
		return "OGV"
	default:
		return "MP4"
	}
}

func (f VideoFormat) IsValid() bool {
	switch f {
	case VideoFormatMP4, VideoFormatOGV:
		return true
	default:
		return false
	}
}

// Extension returns the artifact file extension for the format.
func (f VideoFormat) Extension() string {
	switch f {
	case VideoFormatOGV:
		return ".ogv"
	default:
		return ".mp4"
	}
}

// ParseVideoFormat converts the textual query-parameter form.
func ParseVideoFormat(s string) (VideoFormat, error) {
	switch s {
	case "", "MP4":
		return VideoFormatMP4, nil
	case "OGV":
		return VideoFormatOGV, nil
	default:
		return VideoFormatMP4, fmt.Errorf("unknown video format %q", s)
	}
}

// HashURL derives the primary cache key fragment for a source URL:
// lowercase hex SHA-256 of the raw URL bytes.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ConversionJob is the unit of work carried by the queue. Two jobs with the
// same URL but different formats are distinct conversions.
type ConversionJob struct {
	Hash        string      `json:"Hash"`
	URL         string      `json:"URL"`
	ImageFormat ImageFormat `json:"ImageFormat"`
	VideoFormat VideoFormat `json:"VideoFormat"`
}

// NewConversionJob builds a job for a source URL, deriving the hash.
func NewConversionJob(url string, img ImageFormat, vid VideoFormat) ConversionJob {
	return ConversionJob{
		Hash:        HashURL(url),
		URL:         url,
		ImageFormat: img,
		VideoFormat: vid,
	}
}

// RefreshRequest is an expiry hint flowing through the refresh pipeline.
// The struct is comparable on purpose: the pipeline's pending set is keyed
// by the exact tuple.
type RefreshRequest struct {
	Hash        string
	URL         string
	ImageFormat ImageFormat
	VideoFormat VideoFormat
	Force       bool
}

// Job converts the refresh request into the equivalent conversion job.
func (r RefreshRequest) Job() ConversionJob {
	return ConversionJob{
		Hash:        r.Hash,
		URL:         r.URL,
		ImageFormat: r.ImageFormat,
		VideoFormat: r.VideoFormat,
	}
}

// CacheResult is the outcome of a cache lookup for one conversion identity.
type CacheResult struct {
	// URL is the public location of the converted artifact.
	URL string
	// ETag is the origin entity tag captured at download time, if any.
	ETag string
	// Expired reports that the freshness marker is absent. The artifact is
	// still served; expiry only schedules a revalidation.
	Expired bool
	// Converting reports that a worker currently holds the in-flight marker.
	Converting bool
	// Format is the textual name of the target that applied to the detected
	// media class.
	Format string
}
