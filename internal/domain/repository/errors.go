package repository

import "errors"

var (
	// ErrNotConfigured is returned when an operation requires a backend
	// that was not wired (e.g. Store without object storage).
	ErrNotConfigured = errors.New("backend not configured")

	// ErrUnsupportedExtension is returned when a converted file's extension
	// has no known content type.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrUnknownFileType is returned when a downloaded file cannot be
	// classified from its header bytes.
	ErrUnknownFileType = errors.New("unknown file type")

	// ErrDownloadFailed is returned when the origin responds with a
	// non-2xx status.
	ErrDownloadFailed = errors.New("download failed")

	// ErrDownloadTooLarge is returned when the origin body exceeds the
	// configured byte cap. The partial file is already deleted.
	ErrDownloadTooLarge = errors.New("download exceeds size limit")

	// ErrEncodeFailed is returned when a media tool exits non-zero.
	ErrEncodeFailed = errors.New("encoder failed")

	// ErrMalformedJob is returned when a queue message does not parse.
	// The message has already been removed from the queue so the poison
	// pill does not replay.
	ErrMalformedJob = errors.New("malformed queue message")

	// ErrBucketNotFound is returned when the configured bucket does not
	// exist at startup.
	ErrBucketNotFound = errors.New("bucket not found")
)
