package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

// Bot wires the session event stream into the download pipeline:
// filter, extract, dispatch.
type Bot struct {
	session    *SessionManager
	filter     *MessageFilter
	extractor  *UrlExtractor
	dispatcher *DownloadDispatcher
	repo       domain.JobRepository
	events     EventLog
	config     *domain.DownloadConfig
	logger     *zap.Logger
	mu         sync.RWMutex
	running    bool
	ctx        context.Context
	stopChan   chan struct{}
	workerWg   sync.WaitGroup
}

// NewBot creates a new bot
func NewBot(
	session *SessionManager,
	filter *MessageFilter,
	extractor *UrlExtractor,
	dispatcher *DownloadDispatcher,
	repo domain.JobRepository,
	events EventLog,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		session:    session,
		filter:     filter,
		extractor:  extractor,
		dispatcher: dispatcher,
		repo:       repo,
		events:     events,
		config:     config,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
	session.OnMessage(b.HandleMessage)
	return b
}

// Start marks jobs left over from a previous run as failed, starts the
// dedup sweeper and initializes the session. A session failure is reported
// by the session manager and does not stop the bot.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.ctx = ctx
	b.mu.Unlock()

	if n, err := b.repo.FailUnfinished("interrupted by restart"); err != nil {
		b.logger.Error("Failed to reset unfinished jobs", zap.Error(err))
	} else if n > 0 {
		b.logger.Info("Marked unfinished jobs as failed", zap.Int64("count", n))
	}

	b.workerWg.Add(1)
	go b.sweep(ctx)

	if err := b.session.Initialize(ctx); err != nil {
		b.logger.Error("Session initialization failed", zap.Error(err))
	}

	return nil
}

// Stop refuses new jobs, disconnects the session and waits for in-flight jobs
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot not running")
	}
	b.running = false
	b.mu.Unlock()

	b.dispatcher.Close()
	close(b.stopChan)
	b.session.Stop()
	b.workerWg.Wait()
	b.dispatcher.Wait()

	return nil
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// HandleMessage runs one inbound message through the pipeline. It never
// blocks on the download itself.
func (b *Bot) HandleMessage(msg domain.IncomingMessage) {
	if !b.filter.InScope(msg) {
		return
	}

	sender := msg.SenderDisplayName
	if sender == "" {
		sender = msg.SenderID
	}
	b.events.Info("Message received from %s: %s", sender, msg.Body)

	link, ok := b.extractor.Extract(msg.Body)
	if !ok {
		return
	}
	b.events.Info("Found URL: %s", link.RawURL)

	jobID, created := b.dispatcher.Dispatch(b.context(), msg, link)
	if !created {
		return
	}
	b.logger.Info("Download dispatched",
		zap.String("id", jobID),
		zap.String("message_id", msg.ID),
		zap.String("platform", string(link.Platform)),
		zap.String("received_via", string(msg.ReceivedVia)))
}

func (b *Bot) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// sweep periodically evicts dedup entries past their retention window
func (b *Bot) sweep(ctx context.Context) {
	defer b.workerWg.Done()

	interval := b.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case now := <-ticker.C:
			if evicted := b.dispatcher.Sweep(now); evicted > 0 {
				b.logger.Debug("Evicted dedup entries",
					zap.Int("evicted", evicted),
					zap.Int("tracked", b.dispatcher.Tracked()))
			}
		}
	}
}
