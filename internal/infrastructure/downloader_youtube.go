package infrastructure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

// youtubeClient is the subset of the YouTube client the downloader uses
type youtubeClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTubeDownloader implements Downloader for YouTube
type YouTubeDownloader struct {
	client   youtubeClient
	store    *FileStore
	messages *domain.MessagesConfig
	logger   *zap.Logger
}

// NewYouTubeDownloader creates a new YouTube downloader
func NewYouTubeDownloader(store *FileStore, messages *domain.MessagesConfig, logger *zap.Logger) *YouTubeDownloader {
	return newYouTubeDownloader(&youtube.Client{}, store, messages, logger)
}

func newYouTubeDownloader(client youtubeClient, store *FileStore, messages *domain.MessagesConfig, logger *zap.Logger) *YouTubeDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTubeDownloader{
		client:   client,
		store:    store,
		messages: messages,
		logger:   logger,
	}
}

// Platform returns the platform this downloader handles
func (d *YouTubeDownloader) Platform() domain.Platform {
	return domain.PlatformYouTube
}

// Fetch resolves the video, streams its best progressive format to disk and
// names the file after the video title.
func (d *YouTubeDownloader) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.DownloadResult, error) {
	video, err := d.client.GetVideoContext(ctx, job.URL)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformYouTube, "metadata", err)
	}

	format, err := bestProgressiveFormat(video.Formats)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformYouTube, "format", err)
	}

	d.logger.Debug("Selected YouTube format",
		zap.String("id", job.ID),
		zap.Int("itag", format.ItagNo),
		zap.String("quality", format.QualityLabel),
		zap.String("mime", format.MimeType))

	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformYouTube, "stream", err)
	}
	defer stream.Close()

	name := SanitizeTitle(video.Title, job.ID)
	filePath, err := d.store.Save(ctx, job.ID, stream, name)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformYouTube, "store", err)
	}

	if err := d.store.WriteMetadata(filePath, job, video.Title); err != nil {
		d.logger.Warn("Failed to store metadata", zap.String("id", job.ID), zap.Error(err))
	}

	return &domain.DownloadResult{
		FilePath: filePath,
		Title:    video.Title,
		Message:  fmt.Sprintf(d.messages.YouTubeSuccess, video.Title),
	}, nil
}

// bestProgressiveFormat picks the highest-quality format carrying both audio
// and video, preferring mp4 containers.
func bestProgressiveFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		if best == nil || betterFormat(f, best) {
			best = f
		}
	}
	if best == nil {
		return nil, domain.ErrNoCompatibleFormat
	}
	return best, nil
}

func betterFormat(a, b *youtube.Format) bool {
	aMP4 := strings.HasPrefix(a.MimeType, "video/mp4")
	bMP4 := strings.HasPrefix(b.MimeType, "video/mp4")
	if aMP4 != bMP4 {
		return aMP4
	}
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}
