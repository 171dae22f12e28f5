package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vidbot/internal/domain"
)

// fakeBrowser counts launched and closed sessions
type fakeBrowser struct {
	mu       sync.Mutex
	launched int
	closed   int
	src      string
	err      error
}

type fakeBrowserSession struct {
	browser *fakeBrowser
}

func (f *fakeBrowser) launch(ctx context.Context) (browserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched++
	return &fakeBrowserSession{browser: f}, nil
}

func (f *fakeBrowser) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launched, f.closed
}

func (s *fakeBrowserSession) VideoSource(ctx context.Context, pageURL string) (string, error) {
	return s.browser.src, s.browser.err
}

func (s *fakeBrowserSession) Close() {
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.closed++
}

func genericJob(id, pageURL string) *domain.DownloadJob {
	return domain.NewDownloadJob(
		domain.IncomingMessage{ID: id, ChatID: "chat"},
		domain.ExtractedLink{Platform: domain.PlatformGeneric, RawURL: pageURL},
	)
}

func newTestGenericScraper(browser *fakeBrowser, store *FileStore) *GenericHeadlessScraper {
	messages := domain.DefaultConfig().Messages
	return newGenericHeadlessScraper(browser.launch, NewHTTPClient(false, 5*time.Second), store, &messages, nil)
}

func TestGenericScraper_DownloadsFirstVideo(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/clip.mp4" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "instagram-video")
	}))
	defer media.Close()

	browser := &fakeBrowser{src: "/media/clip.mp4"}
	store := newTestStore(t)
	scraper := newTestGenericScraper(browser, store)

	job := genericJob("m1", media.URL+"/p/abc/")
	result, err := scraper.Fetch(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "Downloaded social media video.", result.Message)
	assert.Contains(t, result.FilePath, job.ID+".mp4")

	data, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "instagram-video", string(data))

	launched, closed := browser.counts()
	assert.Equal(t, 1, launched)
	assert.Equal(t, 1, closed)
}

func TestGenericScraper_NoVideoElement(t *testing.T) {
	browser := &fakeBrowser{src: ""}
	store := newTestStore(t)
	scraper := newTestGenericScraper(browser, store)

	_, err := scraper.Fetch(context.Background(), genericJob("m1", "https://www.instagram.com/p/abc/"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVideoNotFound))
	assert.Equal(t, domain.FailureVideoNotFound, domain.ClassifyFailure(err))

	launched, closed := browser.counts()
	assert.Equal(t, 1, launched)
	assert.Equal(t, 1, closed, "browser must be torn down")
}

func TestGenericScraper_BrowserErrorClosesSession(t *testing.T) {
	browser := &fakeBrowser{err: errors.New("chrome crashed")}
	scraper := newTestGenericScraper(browser, newTestStore(t))

	_, err := scraper.Fetch(context.Background(), genericJob("m1", "https://www.instagram.com/p/abc/"))
	var dlErr *domain.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "render", dlErr.Stage)

	launched, closed := browser.counts()
	assert.Equal(t, launched, closed)
}

func TestGenericScraper_BlobSourceIsNotDownloadable(t *testing.T) {
	browser := &fakeBrowser{src: "blob:https://www.instagram.com/1234"}
	scraper := newTestGenericScraper(browser, newTestStore(t))

	_, err := scraper.Fetch(context.Background(), genericJob("m1", "https://www.instagram.com/p/abc/"))
	assert.True(t, errors.Is(err, domain.ErrVideoNotFound))
}

func TestGenericScraper_ConcurrentJobsUseUniqueFiles(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "clip")
	}))
	defer media.Close()

	browser := &fakeBrowser{src: media.URL + "/video.mp4"}
	scraper := newTestGenericScraper(browser, newTestStore(t))

	var wg sync.WaitGroup
	paths := make([]string, 5)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := scraper.Fetch(context.Background(), genericJob(fmt.Sprintf("m%d", i), media.URL+"/p/"))
			if assert.NoError(t, err) {
				paths[i] = result.FilePath
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}

	launched, closed := browser.counts()
	assert.Equal(t, 5, launched)
	assert.Equal(t, 5, closed)
}

func TestResolveReference(t *testing.T) {
	got, err := resolveReference("https://www.instagram.com/p/abc/", "/media/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/media/x.mp4", got)

	got, err = resolveReference("https://www.instagram.com/p/abc/", "https://cdn.example/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/x.mp4", got)
}
