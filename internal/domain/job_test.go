package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testJob() *DownloadJob {
	msg := IncomingMessage{ID: "msg-1", ChatID: "123@g.us", SenderID: "555@s.whatsapp.net", ReceivedVia: ViaNormal}
	return NewDownloadJob(msg, ExtractedLink{Platform: PlatformYouTube, RawURL: "https://www.youtube.com/watch?v=abc123"})
}

func TestNewDownloadJob(t *testing.T) {
	job := testJob()

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "msg-1", job.MessageID)
	assert.Equal(t, "123@g.us", job.ChatID)
	assert.Equal(t, PlatformYouTube, job.Platform)
	assert.Equal(t, "normal", job.ReceivedVia)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, ExtractedLink{Platform: PlatformYouTube, RawURL: "https://www.youtube.com/watch?v=abc123"}, job.Link())
}

func TestDownloadJob_Lifecycle(t *testing.T) {
	job := testJob()

	assert.False(t, job.MarkSucceeded("/tmp/a.mp4", "a"), "pending job cannot succeed")

	assert.True(t, job.MarkRunning())
	assert.Equal(t, StatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.False(t, job.MarkRunning(), "running job cannot restart")

	assert.True(t, job.MarkSucceeded("/videos/My Video.mp4", "My Video"))
	assert.Equal(t, StatusSucceeded, job.Status)
	assert.Equal(t, "/videos/My Video.mp4", job.FilePath)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())

	assert.False(t, job.MarkFailed(errors.New("late")), "terminal status is final")
	assert.Equal(t, StatusSucceeded, job.Status)
}

func TestDownloadJob_MarkFailed(t *testing.T) {
	job := testJob()
	job.MarkRunning()

	assert.True(t, job.MarkFailed(errors.New("download failed")))
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "download failed", job.ErrorMessage)
	assert.True(t, job.IsTerminal())
}

func TestDownloadJob_MarkDelivered(t *testing.T) {
	job := testJob()
	job.MarkRunning()
	job.MarkSucceeded("/videos/x.mp4", "")

	job.MarkDelivered(errors.New("send rejected"))
	assert.False(t, job.Delivered)
	assert.Equal(t, "send rejected", job.DeliveryErr)
	assert.Equal(t, StatusSucceeded, job.Status)
}

func TestValidatePlatform(t *testing.T) {
	assert.True(t, ValidatePlatform(PlatformYouTube))
	assert.True(t, ValidatePlatform(PlatformFacebook))
	assert.True(t, ValidatePlatform(PlatformGeneric))
	assert.False(t, ValidatePlatform("vimeo"))
}

func TestValidateStatus(t *testing.T) {
	assert.True(t, ValidateStatus(StatusPending))
	assert.True(t, ValidateStatus(StatusFailed))
	assert.False(t, ValidateStatus("DONE"))
	assert.False(t, ValidateStatus(""))
}
