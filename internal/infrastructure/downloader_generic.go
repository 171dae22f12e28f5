package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

const videoSourceScript = `(function() {
	var v = document.querySelector('video');
	if (!v) return '';
	if (v.currentSrc) return v.currentSrc;
	if (v.src) return v.src;
	var s = v.querySelector('source');
	return s && s.src ? s.src : '';
})()`

// browserSession is one isolated browser instance
type browserSession interface {
	// VideoSource loads pageURL and returns the first <video> source, empty if none
	VideoSource(ctx context.Context, pageURL string) (string, error)
	Close()
}

// browserLauncher starts a new isolated browser
type browserLauncher func(ctx context.Context) (browserSession, error)

// GenericHeadlessScraper implements Downloader for pages that embed a
// <video> element, rendering them in a headless browser.
type GenericHeadlessScraper struct {
	launch   browserLauncher
	client   *http.Client
	store    *FileStore
	messages *domain.MessagesConfig
	logger   *zap.Logger
}

// NewGenericHeadlessScraper creates a new generic scraper backed by Chrome
func NewGenericHeadlessScraper(config *domain.BrowserConfig, client *http.Client, store *FileStore, messages *domain.MessagesConfig, logger *zap.Logger) *GenericHeadlessScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	launch := func(ctx context.Context) (browserSession, error) {
		return newChromeSession(ctx, config, logger), nil
	}
	return newGenericHeadlessScraper(launch, client, store, messages, logger)
}

func newGenericHeadlessScraper(launch browserLauncher, client *http.Client, store *FileStore, messages *domain.MessagesConfig, logger *zap.Logger) *GenericHeadlessScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenericHeadlessScraper{
		launch:   launch,
		client:   client,
		store:    store,
		messages: messages,
		logger:   logger,
	}
}

// Platform returns the platform this downloader handles
func (d *GenericHeadlessScraper) Platform() domain.Platform {
	return domain.PlatformGeneric
}

// Fetch renders the page, reads the first video source and downloads it
func (d *GenericHeadlessScraper) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.DownloadResult, error) {
	src, err := d.probe(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Found video source", zap.String("id", job.ID), zap.String("src", src))

	body, err := openStream(ctx, d.client, src, "")
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformGeneric, "fetch", err)
	}
	defer body.Close()

	filePath, err := d.store.Save(ctx, job.ID, body, job.ID)
	if err != nil {
		return nil, domain.NewDownloadError(domain.PlatformGeneric, "store", err)
	}

	if err := d.store.WriteMetadata(filePath, job, ""); err != nil {
		d.logger.Warn("Failed to store metadata", zap.String("id", job.ID), zap.Error(err))
	}

	return &domain.DownloadResult{
		FilePath: filePath,
		Message:  d.messages.GenericSuccess,
	}, nil
}

// probe runs one browser session for pageURL and always closes it
func (d *GenericHeadlessScraper) probe(ctx context.Context, pageURL string) (string, error) {
	session, err := d.launch(ctx)
	if err != nil {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "browser", err)
	}
	defer session.Close()

	src, err := session.VideoSource(ctx, pageURL)
	if err != nil {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "render", err)
	}

	src = strings.TrimSpace(src)
	if src == "" {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "render", domain.ErrVideoNotFound)
	}
	if strings.HasPrefix(src, "blob:") || strings.HasPrefix(src, "data:") {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "render",
			fmt.Errorf("%w: source is not downloadable (%s)", domain.ErrVideoNotFound, src[:strings.Index(src, ":")]))
	}

	return resolveReference(pageURL, src)
}

func resolveReference(pageURL, src string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "render", err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", domain.NewDownloadError(domain.PlatformGeneric, "render", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// chromeSession is a browserSession backed by a dedicated Chrome process
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	idleTimeout time.Duration
	idle        chan cdp.LoaderID
	logger      *zap.Logger
}

func newChromeSession(parent context.Context, config *domain.BrowserConfig, logger *zap.Logger) *chromeSession {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("mute-audio", true),
	)
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx: taskCtx,
		cancel: func() {
			taskCancel()
			allocCancel()
		},
		idleTimeout: config.IdleTimeout,
		idle:        make(chan cdp.LoaderID, 16),
		logger:      logger,
	}

	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case s.idle <- e.LoaderID:
			default:
			}
		}
	})

	return s
}

// VideoSource navigates, waits for network idleness and queries the DOM
func (s *chromeSession) VideoSource(ctx context.Context, pageURL string) (string, error) {
	// Stop the browser work when the job context ends
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	var loaderID cdp.LoaderID
	err := chromedp.Run(s.ctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, id, errorText, _, err := page.Navigate(pageURL).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("navigation failed: %s", errorText)
			}
			loaderID = id
			return nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("navigate to %s: %w", pageURL, err)
	}

	s.waitNetworkIdle(loaderID)

	var src string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(videoSourceScript, &src)); err != nil {
		return "", fmt.Errorf("query video element: %w", err)
	}
	return src, nil
}

// waitNetworkIdle blocks until the navigation's network goes idle or the
// idle timeout passes. A timeout is not an error; the DOM is queried anyway.
func (s *chromeSession) waitNetworkIdle(loaderID cdp.LoaderID) {
	timeout := s.idleTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case id := <-s.idle:
			if id == loaderID {
				return
			}
		case <-timer.C:
			s.logger.Debug("Network idle wait timed out", zap.Duration("timeout", timeout))
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// Close shuts down the browser process
func (s *chromeSession) Close() {
	s.cancel()
}
