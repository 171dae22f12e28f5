package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vidbot/internal/domain"
)

type botFixture struct {
	*dispatcherFixture
	client *fakeSessionClient
	bot    *Bot
}

func newBotFixture(t *testing.T, scope domain.ScopeConfig) *botFixture {
	t.Helper()
	config := domain.DownloadConfig{SweepInterval: 10 * time.Millisecond, DedupRetention: time.Millisecond}
	df := newDispatcherFixture(t, config, succeedWith("My Video"))
	client := &fakeSessionClient{}
	session := NewSessionManager(client, &fakeQR{}, df.events, &domain.SessionConfig{}, nil)
	bot := NewBot(session, NewMessageFilter(scope), NewUrlExtractor(), df.dispatcher, df.repo, df.events, &config, nil)
	return &botFixture{dispatcherFixture: df, client: client, bot: bot}
}

func TestBot_StartStop(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{})

	require.NoError(t, f.bot.Start(context.Background()))
	assert.True(t, f.bot.IsRunning())
	assert.Error(t, f.bot.Start(context.Background()))

	require.NoError(t, f.bot.Stop())
	assert.False(t, f.bot.IsRunning())
	assert.Error(t, f.bot.Stop())
}

func TestBot_MessageFromSessionCreatesJob(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{GroupName: "Videos", IncludeSelf: true})
	require.NoError(t, f.bot.Start(context.Background()))

	msg := youtubeMessage("m1", domain.ViaNormal)
	echo := youtubeMessage("m1", domain.ViaSelfEcho)
	f.client.emit(domain.SessionEvent{Kind: domain.EventMessage, Message: &msg})
	f.client.emit(domain.SessionEvent{Kind: domain.EventMessage, Message: &echo})

	require.NoError(t, f.bot.Stop())

	jobs := f.repo.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.StatusSucceeded, jobs[0].Status)
	assert.Len(t, f.sender.sends(), 1)

	lines := f.events.all()
	assert.Contains(t, lines, "info: Message received from Ana: check this https://www.youtube.com/watch?v=abc123 cool")
	assert.Contains(t, lines, "info: Found URL: https://www.youtube.com/watch?v=abc123")
}

func TestBot_MessageAfterStopCreatesNoJob(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{GroupName: "Videos"})
	require.NoError(t, f.bot.Start(context.Background()))
	require.NoError(t, f.bot.Stop())

	f.bot.HandleMessage(youtubeMessage("late", domain.ViaNormal))
	f.dispatcher.Wait()

	assert.Empty(t, f.repo.all())
	assert.Zero(t, f.youtube.callCount())
}

func TestBot_IgnoresOutOfScopeMessages(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{GroupName: "Other"})

	f.bot.HandleMessage(youtubeMessage("m1", domain.ViaNormal))
	f.dispatcher.Wait()

	assert.Empty(t, f.repo.all())
	assert.Empty(t, f.events.all())
}

func TestBot_NoLinkMeansNoJobAndNoReply(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{})

	msg := youtubeMessage("m1", domain.ViaNormal)
	msg.Body = "see you at https://example.com/party tonight"
	f.bot.HandleMessage(msg)
	f.dispatcher.Wait()

	assert.Empty(t, f.repo.all())
	successes, failures := f.replier.replies()
	assert.Empty(t, successes)
	assert.Empty(t, failures)
	assert.Equal(t, []string{"info: Message received from Ana: " + msg.Body}, f.events.all())
}

func TestBot_SweeperEvictsFinishedEntries(t *testing.T) {
	f := newBotFixture(t, domain.ScopeConfig{})
	require.NoError(t, f.bot.Start(context.Background()))

	f.bot.HandleMessage(youtubeMessage("m1", domain.ViaNormal))
	f.dispatcher.Wait()

	assert.Eventually(t, func() bool {
		return f.dispatcher.Tracked() == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.bot.Stop())
}
