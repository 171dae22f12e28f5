package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

// qualityOption is one download link listed by the resolver page
type qualityOption struct {
	Quality string
	URL     string
}

// FacebookScraper implements Downloader for Facebook through a third-party
// resolver page that lists direct download links per quality.
type FacebookScraper struct {
	config   *domain.FacebookConfig
	client   *http.Client
	store    *FileStore
	messages *domain.MessagesConfig
	logger   *zap.Logger
}

// NewFacebookScraper creates a new Facebook scraper
func NewFacebookScraper(config *domain.FacebookConfig, client *http.Client, store *FileStore, messages *domain.MessagesConfig, logger *zap.Logger) *FacebookScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacebookScraper{
		config:   config,
		client:   client,
		store:    store,
		messages: messages,
		logger:   logger,
	}
}

// Platform returns the platform this downloader handles
func (d *FacebookScraper) Platform() domain.Platform {
	return domain.PlatformFacebook
}

// Fetch resolves the quality options, picks the configured index and
// streams that file to a job-unique name.
func (d *FacebookScraper) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.DownloadResult, error) {
	options, err := d.resolve(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	if d.config.OptionIndex >= len(options) {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve",
			fmt.Errorf("%w: %d option(s), need index %d", domain.ErrNoQualityOptionsFound, len(options), d.config.OptionIndex))
	}
	selected := options[d.config.OptionIndex]

	d.logger.Debug("Selected Facebook quality",
		zap.String("id", job.ID),
		zap.String("quality", selected.Quality),
		zap.Int("options", len(options)))

	body, err := openStream(ctx, d.client, selected.URL, d.config.UserAgent)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "fetch", err)
	}
	defer body.Close()

	filePath, err := d.store.Save(ctx, job.ID, body, job.ID)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "store", err)
	}

	if err := d.store.WriteMetadata(filePath, job, selected.Quality); err != nil {
		d.logger.Warn("Failed to store metadata", zap.String("id", job.ID), zap.Error(err))
	}

	return &domain.DownloadResult{
		FilePath: filePath,
		Message:  d.messages.FacebookSuccess,
	}, nil
}

// resolve posts the target URL to the resolver and parses its options
func (d *FacebookScraper) resolve(ctx context.Context, targetURL string) ([]qualityOption, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("url", targetURL); err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", err)
	}
	if err := writer.Close(); err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.ResolverURL, &form)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve",
			fmt.Errorf("resolver returned %s", resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", err)
	}

	options := parseQualityOptions(doc)
	if len(options) == 0 {
		return nil, domain.NewDownloadError(domain.PlatformFacebook, "resolve", domain.ErrNoQualityOptionsFound)
	}
	return options, nil
}

// parseQualityOptions collects the resolver's download buttons in page order
func parseQualityOptions(doc *goquery.Document) []qualityOption {
	var options []qualityOption
	doc.Find(`a.btn.btn-download[target="_blank"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		quality := strings.TrimSpace(s.Text())
		if strings.TrimSpace(s.Find("strong").Text()) == "HD" {
			quality = "Download in HD Quality"
		}

		options = append(options, qualityOption{
			Quality: quality,
			URL:     strings.ReplaceAll(href, "amp;", ""),
		})
	})
	return options
}
