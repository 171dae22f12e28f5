package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (*LogBus, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "combined.log")
	bus, err := NewLogBus(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus, path
}

func nextLine(t *testing.T, sub *Subscription) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	line, err := sub.Next(ctx)
	require.NoError(t, err)
	return line
}

func TestLogEvent_Line(t *testing.T) {
	event := LogEvent{
		Timestamp: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Level:     LevelError,
		Text:      "Could not download video.",
	}

	assert.Equal(t, "2024-03-01T12:30:00.000Z [error]: Could not download video.", event.Line())
}

func TestLogBus_PublishAppendsToFile(t *testing.T) {
	bus, path := newTestBus(t)

	bus.Info("Client is ready!")
	bus.Error("Failed: %s", "boom")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "[info]: Client is ready!"))
	assert.True(t, strings.HasSuffix(lines[1], "[error]: Failed: boom"))
}

func TestLogEvent_LineFlattensLineBreaks(t *testing.T) {
	event := LogEvent{
		Timestamp: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Level:     LevelInfo,
		Text:      "Message received from Ana: look\r\nhere\n\nhttps://youtu.be/abc\r",
	}

	assert.Equal(t, "2024-03-01T12:30:00.000Z [info]: Message received from Ana: look here  https://youtu.be/abc ", event.Line())
}

func TestLogBus_MultiLineTextIsOneLineEverywhere(t *testing.T) {
	bus, path := newTestBus(t)

	live, err := bus.Subscribe()
	require.NoError(t, err)
	defer live.Close()

	bus.Info("Message received from Ana: a\nb")
	bus.Info("after")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fileLines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, fileLines, 2)

	liveLines := []string{nextLine(t, live), nextLine(t, live)}

	late, err := bus.Subscribe()
	require.NoError(t, err)
	defer late.Close()
	backlog := []string{nextLine(t, late), nextLine(t, late)}

	assert.Equal(t, fileLines, liveLines)
	assert.Equal(t, fileLines, backlog)
	assert.True(t, strings.HasSuffix(fileLines[0], "[info]: Message received from Ana: a b"))

	entries, err := bus.Reader().ReadLogs(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Message received from Ana: a b", entries[0].Message)
}

func TestLogBus_SubscribeReplaysBacklogThenLive(t *testing.T) {
	bus, _ := newTestBus(t)

	bus.Info("one")
	bus.Info("two")

	sub, err := bus.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	bus.Info("three")

	assert.True(t, strings.HasSuffix(nextLine(t, sub), "]: one"))
	assert.True(t, strings.HasSuffix(nextLine(t, sub), "]: two"))
	assert.True(t, strings.HasSuffix(nextLine(t, sub), "]: three"))
}

func TestLogBus_NoGapOrDuplicateUnderConcurrentPublish(t *testing.T) {
	bus, _ := newTestBus(t)

	const total = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			bus.Info("event-%03d", i)
		}
	}()

	time.Sleep(time.Millisecond)
	sub, err := bus.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	wg.Wait()

	for i := 0; i < total; i++ {
		line := nextLine(t, sub)
		assert.True(t, strings.HasSuffix(line, fmt.Sprintf("]: event-%03d", i)), "line %d: %s", i, line)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogBus_Unsubscribe(t *testing.T) {
	bus, _ := newTestBus(t)

	sub, err := bus.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Info("after")
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestLogBus_CloseEndsSubscriptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.log")
	bus, err := NewLogBus(path, nil)
	require.NoError(t, err)

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)

	_, err = bus.Subscribe()
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}
