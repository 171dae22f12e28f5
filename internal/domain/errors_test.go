package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"no options", NewDownloadError(PlatformFacebook, "resolve", ErrNoQualityOptionsFound), FailureInvalidURL},
		{"no video", NewDownloadError(PlatformGeneric, "scrape", ErrVideoNotFound), FailureVideoNotFound},
		{"timeout", fmt.Errorf("job abc: %w", ErrJobTimeout), FailureTimeout},
		{"delivery", &DeliveryError{ChatID: "1@g.us", Err: errors.New("rejected")}, FailureDelivery},
		{"other", NewDownloadError(PlatformYouTube, "metadata", errors.New("403")), FailureDownload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestDownloadError_Unwrap(t *testing.T) {
	err := NewDownloadError(PlatformFacebook, "resolve", ErrNoQualityOptionsFound)

	assert.ErrorIs(t, err, ErrNoQualityOptionsFound)
	assert.Contains(t, err.Error(), "facebook download failed at resolve")

	var dlErr *DownloadError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &dlErr))
	assert.Equal(t, PlatformFacebook, dlErr.Platform)
}

func TestSessionInitError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &SessionInitError{Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "session init failed: dial tcp: refused", err.Error())
}
