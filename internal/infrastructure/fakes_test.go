package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/vidbot/internal/domain"
)

// fakeMessenger records outbound messages
type fakeMessenger struct {
	mu       sync.Mutex
	replies  []string
	media    []domain.MediaOptions
	payloads [][]byte
	replyErr error
	mediaErr error
}

func (f *fakeMessenger) Reply(ctx context.Context, msg domain.IncomingMessage, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeMessenger) SendMedia(ctx context.Context, chatID string, data []byte, opts domain.MediaOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.media = append(f.media, opts)
	f.payloads = append(f.payloads, data)
	return nil
}

// fakeEvents records feed lines
type fakeEvents struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeEvents) Info(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, "info: "+fmt.Sprintf(format, args...))
}

func (f *fakeEvents) Error(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, "error: "+fmt.Sprintf(format, args...))
}

func (f *fakeEvents) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}
