package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of a log feed event
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// TimestampLayout is the ISO-8601 layout used in the log feed
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrSubscriptionClosed is returned by Next once a subscription is closed
var ErrSubscriptionClosed = errors.New("subscription closed")

// LogEvent is one entry of the log feed
type LogEvent struct {
	Timestamp time.Time
	Level     Level
	Text      string
}

// lineBreaks flattens multi-line text so one event stays one feed line
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Line formats the event as "<timestamp> [<level>]: <text>"
func (e LogEvent) Line() string {
	return fmt.Sprintf("%s [%s]: %s", e.Timestamp.UTC().Format(TimestampLayout), e.Level, lineBreaks.Replace(e.Text))
}

// LogBus appends events to a durable file, mirrors them to zap and
// broadcasts them to live subscribers in publish order.
type LogBus struct {
	mu     sync.Mutex
	file   *os.File
	reader *LogReader
	mirror *zap.Logger
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	now    func() time.Time
}

// NewLogBus opens (or creates) the feed file at path
func NewLogBus(path string, mirror *zap.Logger) (*LogBus, error) {
	if path == "" {
		return nil, fmt.Errorf("log feed path must be specified")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log feed: %w", err)
	}

	if mirror == nil {
		mirror = zap.NewNop()
	}

	return &LogBus{
		file:   file,
		reader: NewLogReader(path),
		mirror: mirror,
		subs:   make(map[uint64]*Subscription),
		now:    time.Now,
	}, nil
}

// Reader returns a reader over the feed file
func (b *LogBus) Reader() *LogReader {
	return b.reader
}

// Info publishes an info event
func (b *LogBus) Info(format string, args ...interface{}) {
	b.Publish(LevelInfo, fmt.Sprintf(format, args...))
}

// Error publishes an error event
func (b *LogBus) Error(format string, args ...interface{}) {
	b.Publish(LevelError, fmt.Sprintf(format, args...))
}

// Publish appends the event to the file and hands it to every subscriber.
// Write failures are reported to the zap mirror; live delivery still happens.
func (b *LogBus) Publish(level Level, text string) LogEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := LogEvent{Timestamp: b.now(), Level: level, Text: text}
	if b.closed {
		return event
	}

	line := event.Line()
	if _, err := b.file.WriteString(line + "\n"); err != nil {
		b.mirror.Error("Failed to append log feed", zap.Error(err))
	}

	if level == LevelError {
		b.mirror.Error(text, zap.String("source", "bus"))
	} else {
		b.mirror.Info(text, zap.String("source", "bus"))
	}

	for _, sub := range b.subs {
		sub.push(line)
	}

	return event
}

// Subscribe registers a subscriber. Its stream starts with the whole file
// backlog followed by every line published afterwards.
func (b *LogBus) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrSubscriptionClosed
	}

	backlog, err := b.reader.ReadLines()
	if err != nil {
		return nil, fmt.Errorf("failed to read log backlog: %w", err)
	}

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		bus:     b,
		pending: backlog,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	b.subs[sub.id] = sub

	return sub, nil
}

// Unsubscribe removes the subscriber; nothing more is delivered to it
func (b *LogBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()

	sub.close()
}

// SubscriberCount returns the number of live subscribers
func (b *LogBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription and the feed file
func (b *LogBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}

	if err := b.file.Sync(); err != nil {
		b.mirror.Warn("Failed to sync log feed", zap.Error(err))
	}
	return b.file.Close()
}

// Subscription is an unbounded, ordered stream of log lines
type Subscription struct {
	id      uint64
	bus     *LogBus
	mu      sync.Mutex
	pending []string
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *Subscription) push(line string) {
	s.mu.Lock()
	s.pending = append(s.pending, line)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a line is available, the context ends or the subscription closes
func (s *Subscription) Next(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			line := s.pending[0]
			s.pending[0] = ""
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return line, nil
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
			return "", ErrSubscriptionClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close unsubscribes from the bus
func (s *Subscription) Close() {
	s.bus.Unsubscribe(s)
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	})
}
