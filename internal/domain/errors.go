package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQualityOptionsFound is returned when a resolver page lists no usable download option
	ErrNoQualityOptionsFound = errors.New("no quality options found")
	// ErrVideoNotFound is returned when a scraped page contains no video element
	ErrVideoNotFound = errors.New("video not found")
	// ErrNoCompatibleFormat is returned when no progressive audio+video format exists
	ErrNoCompatibleFormat = errors.New("no compatible format found")
	// ErrJobTimeout marks a job that exceeded its time budget
	ErrJobTimeout = errors.New("download timed out")
)

// SessionInitError is returned when the session binding cannot start
type SessionInitError struct {
	Err error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("session init failed: %v", e.Err)
}

func (e *SessionInitError) Unwrap() error {
	return e.Err
}

// DownloadError wraps a per-job failure with the stage that produced it
type DownloadError struct {
	Platform Platform
	Stage    string // metadata, format, resolve, fetch, stream, store
	Err      error
}

// NewDownloadError creates a download error for a platform and stage
func NewDownloadError(platform Platform, stage string, err error) *DownloadError {
	return &DownloadError{Platform: platform, Stage: stage, Err: err}
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s download failed at %s: %v", e.Platform, e.Stage, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// DeliveryError is returned when a downloaded file could not be sent back
type DeliveryError struct {
	ChatID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// FailureKind is the user-facing category of a job failure
type FailureKind string

const (
	FailureInvalidURL    FailureKind = "invalid_url"
	FailureVideoNotFound FailureKind = "video_not_found"
	FailureTimeout       FailureKind = "timeout"
	FailureDownload      FailureKind = "download_failed"
	FailureDelivery      FailureKind = "delivery_failed"
)

// ClassifyFailure maps an error to the category shown to the chat user
func ClassifyFailure(err error) FailureKind {
	var deliveryErr *DeliveryError
	switch {
	case errors.Is(err, ErrNoQualityOptionsFound):
		return FailureInvalidURL
	case errors.Is(err, ErrVideoNotFound):
		return FailureVideoNotFound
	case errors.Is(err, ErrJobTimeout):
		return FailureTimeout
	case errors.As(err, &deliveryErr):
		return FailureDelivery
	default:
		return FailureDownload
	}
}
