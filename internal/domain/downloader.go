package domain

import (
	"context"
	"path/filepath"
	"strings"
)

// Downloader defines the interface for platform-specific download strategies
type Downloader interface {
	// Fetch turns the job's link into a local media file
	Fetch(ctx context.Context, job *DownloadJob) (*DownloadResult, error)

	// Platform returns the platform this downloader handles
	Platform() Platform
}

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	FilePath string
	Title    string
	Message  string // human-readable success text for the chat
}

// MetadataPath returns the JSON sidecar path stored next to a video
func MetadataPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".info.json"
}
