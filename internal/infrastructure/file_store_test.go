package infrastructure

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"plain title", "My Video", "My Video"},
		{"path separators", "AC/DC - Live\\2024", "AC_DC - Live_2024"},
		{"reserved characters", `What? "Yes": <no>|*`, "What_ _Yes__ _no___"},
		{"control characters", "line\none\ttab", "line one tab"},
		{"trailing dots", "...Final.", "Final"},
		{"empty falls back", "", "job-1"},
		{"only spaces falls back", "   ", "job-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeTitle(tt.title, "job-1"))
		})
	}
}

func TestSanitizeTitle_TruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("é", 300)
	assert.Len(t, []rune(SanitizeTitle(long, "x")), maxTitleRunes)
}

func TestFileStore_SaveStagesAndPromotes(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Save(context.Background(), "job-1", strings.NewReader("data"), "clip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.VideosDir(), "clip.mp4"), path)

	entries, err := os.ReadDir(store.incomingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestFileStore_SaveFailureCleansUp(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "job-1", failingReader{}, "clip")
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(store.incomingDir, "job-1.part"))
	assert.NoFileExists(t, filepath.Join(store.VideosDir(), "clip.mp4"))
}

func TestFileStore_SaveAfterCancelLeavesNoFile(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "job-1", strings.NewReader("data"), "clip")
	require.ErrorIs(t, err, context.Canceled)

	assert.NoFileExists(t, filepath.Join(store.VideosDir(), "clip.mp4"))
	incoming, err := os.ReadDir(store.incomingDir)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

// cancelOnEOF cancels its context once the body has been read in full,
// the moment a deadline would hit between copy and promotion
type cancelOnEOF struct {
	r      *strings.Reader
	cancel context.CancelFunc
}

func (c *cancelOnEOF) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if errors.Is(err, io.EOF) {
		c.cancel()
	}
	return n, err
}

func TestFileStore_DeadlineAfterCopySkipsPromotion(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.Save(ctx, "job-1", &cancelOnEOF{r: strings.NewReader("data"), cancel: cancel}, "clip")
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(store.VideosDir(), "clip.mp4"))
	assert.NoFileExists(t, filepath.Join(store.incomingDir, "job-1.part"))
}
