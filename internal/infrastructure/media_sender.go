package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yourusername/vidbot/internal/domain"
)

// EventPublisher is the user-visible activity feed
type EventPublisher interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// MediaSender sends downloaded files back through the session as video messages
type MediaSender struct {
	messenger domain.Messenger
	events    EventPublisher
	logger    *zap.Logger
}

// NewMediaSender creates a new media sender
func NewMediaSender(messenger domain.Messenger, events EventPublisher, logger *zap.Logger) *MediaSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaSender{
		messenger: messenger,
		events:    events,
		logger:    logger,
	}
}

// Send relays filePath to the chat msg came from, quoting msg. Failures are
// published to the feed and returned as a DeliveryError.
func (s *MediaSender) Send(ctx context.Context, msg domain.IncomingMessage, filePath, caption string) error {
	err := s.send(ctx, msg, filePath, caption)
	if err != nil {
		s.events.Error("Error sending video: %v", err)
		s.logger.Warn("Delivery failed",
			zap.String("chat_id", msg.ChatID),
			zap.String("file", filePath),
			zap.Error(err))
		return &domain.DeliveryError{ChatID: msg.ChatID, Err: err}
	}

	s.events.Info("Video sent successfully!")
	return nil
}

func (s *MediaSender) send(ctx context.Context, msg domain.IncomingMessage, filePath, caption string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read video: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("video file is empty: %s", filepath.Base(filePath))
	}

	return s.messenger.SendMedia(ctx, msg.ChatID, data, domain.MediaOptions{
		FileName:  filepath.Base(filePath),
		MimeType:  "video/mp4",
		Caption:   caption,
		QuoteID:   msg.ID,
		QuoteFrom: msg.SenderID,
	})
}
