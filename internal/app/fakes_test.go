package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/vidbot/internal/domain"
)

// mockJobRepo implements domain.JobRepository for testing
type mockJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]domain.DownloadJob
	createErr error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]domain.DownloadJob)}
}

func (m *mockJobRepo) Create(job *domain.DownloadJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.jobs {
		if existing.MessageID == job.MessageID {
			return errors.New("UNIQUE constraint failed: download_jobs.message_id")
		}
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobRepo) Update(job *domain.DownloadJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobRepo) FindByID(id string) (*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, fmt.Errorf("job %s not found", id)
}

func (m *mockJobRepo) FindByMessageID(messageID string) (*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.MessageID == messageID {
			job := j
			return &job, nil
		}
	}
	return nil, nil
}

func (m *mockJobRepo) FindAll(filters map[string]interface{}, limit int) ([]*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DownloadJob
	for _, j := range m.jobs {
		job := j
		out = append(out, &job)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *mockJobRepo) GetStats() (*domain.JobStats, error) {
	return &domain.JobStats{}, nil
}

func (m *mockJobRepo) FailUnfinished(reason string) (int64, error) {
	return 0, nil
}

func (m *mockJobRepo) all() []domain.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DownloadJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

// fakeDownloader runs fn for every fetch
type fakeDownloader struct {
	platform domain.Platform
	mu       sync.Mutex
	calls    int
	fn       func(ctx context.Context, job *domain.DownloadJob) (*domain.DownloadResult, error)
}

func (f *fakeDownloader) Platform() domain.Platform {
	return f.platform
}

func (f *fakeDownloader) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.DownloadResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, job)
}

func (f *fakeDownloader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeReplier records replies
type fakeReplier struct {
	mu        sync.Mutex
	successes []string
	failures  []error
}

func (f *fakeReplier) NotifySucceeded(ctx context.Context, msg domain.IncomingMessage, result *domain.DownloadResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, result.Message)
}

func (f *fakeReplier) NotifyFailed(ctx context.Context, msg domain.IncomingMessage, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, err)
}

func (f *fakeReplier) Caption(msg domain.IncomingMessage) string {
	return "Here is your video!"
}

func (f *fakeReplier) replies() ([]string, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.successes...), append([]error(nil), f.failures...)
}

// fakeSender records media sends
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg domain.IncomingMessage, filePath, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return &domain.DeliveryError{ChatID: msg.ChatID, Err: f.err}
	}
	f.sent = append(f.sent, filePath+"|"+caption)
	return nil
}

func (f *fakeSender) sends() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
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
