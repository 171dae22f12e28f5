package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/vidbot/internal/domain"
)

// EventLog is the user-visible activity feed
type EventLog interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Replier sends chat feedback for a job
type Replier interface {
	// NotifySucceeded replies with the downloader's success text
	NotifySucceeded(ctx context.Context, msg domain.IncomingMessage, result *domain.DownloadResult)
	// NotifyFailed replies with the message matching the failure category
	NotifyFailed(ctx context.Context, msg domain.IncomingMessage, err error)
	// Caption returns the caption attached to the delivered video
	Caption(msg domain.IncomingMessage) string
}

// MediaDeliverer sends a downloaded file back to the originating chat
type MediaDeliverer interface {
	Send(ctx context.Context, msg domain.IncomingMessage, filePath, caption string) error
}

// dedupEntry tracks the job created for one message id
type dedupEntry struct {
	jobID      string
	finishedAt time.Time
}

// DownloadDispatcher owns de-duplication, strategy selection and the
// concurrency and timeout discipline around download jobs.
type DownloadDispatcher struct {
	repo        domain.JobRepository
	downloaders map[domain.Platform]domain.Downloader
	replier     Replier
	sender      MediaDeliverer
	events      EventLog
	config      *domain.DownloadConfig
	logger      *zap.Logger
	sem         *semaphore.Weighted
	mu          sync.Mutex
	seen        map[string]*dedupEntry
	closed      bool
	active      int64
	wg          sync.WaitGroup
}

// NewDownloadDispatcher creates a new download dispatcher
func NewDownloadDispatcher(
	repo domain.JobRepository,
	downloaders map[domain.Platform]domain.Downloader,
	replier Replier,
	sender MediaDeliverer,
	events EventLog,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadDispatcher {
	limit := int64(config.ConcurrentLimit)
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DownloadDispatcher{
		repo:        repo,
		downloaders: downloaders,
		replier:     replier,
		sender:      sender,
		events:      events,
		config:      config,
		logger:      logger,
		sem:         semaphore.NewWeighted(limit),
		seen:        make(map[string]*dedupEntry),
	}
}

// Dispatch creates a job for msg and runs it in the background, returning
// the job id. It returns false without side effects when a job already
// exists for msg.ID or the dispatcher is closed.
func (d *DownloadDispatcher) Dispatch(ctx context.Context, msg domain.IncomingMessage, link domain.ExtractedLink) (string, bool) {
	job, ok := d.claim(msg, link)
	if !ok {
		return "", false
	}

	atomic.AddInt64(&d.active, 1)
	go func() {
		defer d.wg.Done()
		defer atomic.AddInt64(&d.active, -1)
		d.Process(ctx, msg, job)
	}()

	return job.ID, true
}

// claim performs the atomic check-and-insert on the dedup key. A successful
// claim is counted in wg before the lock is released, so Close followed by
// Wait never races a late Add.
func (d *DownloadDispatcher) claim(msg domain.IncomingMessage, link domain.ExtractedLink) (*domain.DownloadJob, bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("Dispatcher closed, message dropped", zap.String("message_id", msg.ID))
		return nil, false
	}
	if _, exists := d.seen[msg.ID]; exists {
		d.mu.Unlock()
		d.logger.Debug("Duplicate message skipped",
			zap.String("message_id", msg.ID),
			zap.String("received_via", string(msg.ReceivedVia)))
		return nil, false
	}
	job := domain.NewDownloadJob(msg, link)
	d.seen[msg.ID] = &dedupEntry{jobID: job.ID}
	d.wg.Add(1)
	d.mu.Unlock()

	if err := d.repo.Create(job); err != nil {
		// The unique message_id index catches messages handled before a restart
		if existing, findErr := d.repo.FindByMessageID(msg.ID); findErr == nil && existing != nil {
			d.logger.Info("Message already handled by an earlier run",
				zap.String("message_id", msg.ID),
				zap.String("job_id", existing.ID))
			d.finish(msg.ID)
			d.wg.Done()
			return nil, false
		}
		d.logger.Error("Failed to persist job", zap.String("id", job.ID), zap.Error(err))
	}

	return job, true
}

// Process runs a claimed job to its terminal status and delivers the result
func (d *DownloadDispatcher) Process(ctx context.Context, msg domain.IncomingMessage, job *domain.DownloadJob) {
	defer d.finish(msg.ID)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic in download job", zap.String("id", job.ID), zap.Any("panic", r))
			d.fail(ctx, msg, job, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.fail(ctx, msg, job, fmt.Errorf("waiting for a download slot: %w", err))
		return
	}
	defer d.sem.Release(1)

	downloader, ok := d.downloaders[job.Platform]
	if !ok {
		d.fail(ctx, msg, job, fmt.Errorf("no downloader for platform: %s", job.Platform))
		return
	}

	job.MarkRunning()
	d.update(job)

	d.logger.Info("Processing download",
		zap.String("id", job.ID),
		zap.String("url", job.URL),
		zap.String("platform", string(job.Platform)))

	result, err := d.fetch(ctx, downloader, job)
	if err != nil {
		d.fail(ctx, msg, job, err)
		return
	}

	job.MarkSucceeded(result.FilePath, result.Title)
	d.update(job)

	d.events.Info("%s", result.Message)
	d.replier.NotifySucceeded(ctx, msg, result)

	deliverErr := d.sender.Send(ctx, msg, result.FilePath, d.replier.Caption(msg))
	job.MarkDelivered(deliverErr)
	d.update(job)
	if deliverErr != nil {
		d.replier.NotifyFailed(ctx, msg, deliverErr)
	}
}

type fetchOutcome struct {
	result *domain.DownloadResult
	err    error
}

// fetch runs the downloader under the job timeout. A downloader that does
// not return after its context expires is abandoned and the job fails;
// whatever file it produces afterwards is removed.
func (d *DownloadDispatcher) fetch(ctx context.Context, downloader domain.Downloader, job *domain.DownloadJob) (*domain.DownloadResult, error) {
	jobCtx, cancel := context.WithTimeout(ctx, d.config.JobTimeout)
	defer cancel()

	done := make(chan fetchOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Panic in downloader", zap.String("id", job.ID), zap.Any("panic", r))
				done <- fetchOutcome{err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		result, err := downloader.Fetch(jobCtx, job)
		done <- fetchOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return d.outcome(jobCtx, job, out)
	case <-jobCtx.Done():
		// A result that is already waiting wins over the deadline
		select {
		case out := <-done:
			return d.outcome(jobCtx, job, out)
		default:
		}
		go d.discardLate(job, done)
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", domain.ErrJobTimeout, d.config.JobTimeout)
		}
		return nil, jobCtx.Err()
	}
}

func (d *DownloadDispatcher) outcome(jobCtx context.Context, job *domain.DownloadJob, out fetchOutcome) (*domain.DownloadResult, error) {
	if out.err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", domain.ErrJobTimeout, d.config.JobTimeout, out.err)
	}
	if out.err == nil && out.result == nil {
		return nil, fmt.Errorf("%s downloader returned no result", job.Platform)
	}
	return out.result, out.err
}

// discardLate waits for an abandoned downloader and deletes the video and
// metadata it wrote after its job had already failed.
func (d *DownloadDispatcher) discardLate(job *domain.DownloadJob, done <-chan fetchOutcome) {
	out := <-done
	if out.err != nil || out.result == nil || out.result.FilePath == "" {
		return
	}

	for _, path := range []string{out.result.FilePath, domain.MetadataPath(out.result.FilePath)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("Failed to remove late download", zap.String("id", job.ID), zap.String("path", path), zap.Error(err))
		}
	}
	d.logger.Info("Discarded download finished after timeout",
		zap.String("id", job.ID),
		zap.String("path", out.result.FilePath))
}

// fail moves the job to FAILED, records it and tells the chat
func (d *DownloadDispatcher) fail(ctx context.Context, msg domain.IncomingMessage, job *domain.DownloadJob, err error) {
	if !job.MarkFailed(err) {
		return
	}
	d.update(job)

	d.events.Error("Error while downloading the video: %v", err)
	d.logger.Warn("Download failed",
		zap.String("id", job.ID),
		zap.String("url", job.URL),
		zap.Error(err))

	d.replier.NotifyFailed(ctx, msg, err)
}

func (d *DownloadDispatcher) update(job *domain.DownloadJob) {
	if err := d.repo.Update(job); err != nil {
		d.logger.Error("Failed to update job status", zap.String("id", job.ID), zap.Error(err))
	}
}

// finish stamps the dedup entry so the sweeper can evict it later
func (d *DownloadDispatcher) finish(messageID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.seen[messageID]; ok {
		entry.finishedAt = time.Now()
	}
}

// Sweep evicts dedup entries of jobs that finished more than retention ago
func (d *DownloadDispatcher) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := 0
	for id, entry := range d.seen {
		if entry.finishedAt.IsZero() {
			continue
		}
		if now.Sub(entry.finishedAt) > d.config.DedupRetention {
			delete(d.seen, id)
			evicted++
		}
	}
	return evicted
}

// Tracked returns the number of message ids held for de-duplication
func (d *DownloadDispatcher) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// ActiveJobs returns the number of jobs not yet finished
func (d *DownloadDispatcher) ActiveJobs() int64 {
	return atomic.LoadInt64(&d.active)
}

// Close stops accepting new jobs. Jobs already dispatched keep running.
func (d *DownloadDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Wait blocks until every dispatched job has finished
func (d *DownloadDispatcher) Wait() {
	d.wg.Wait()
}
