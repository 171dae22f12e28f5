package infrastructure

import (
	"context"
	"fmt"

	"github.com/yourusername/vidbot/internal/domain"
	"go.uber.org/zap"
)

// ChatNotifier replies to the originating chat with plain-language job feedback
type ChatNotifier struct {
	messenger domain.Messenger
	messages  *domain.MessagesConfig
	logger    *zap.Logger
}

// NewChatNotifier creates a new chat notifier
func NewChatNotifier(messenger domain.Messenger, messages *domain.MessagesConfig, logger *zap.Logger) *ChatNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatNotifier{
		messenger: messenger,
		messages:  messages,
		logger:    logger,
	}
}

// NotifySucceeded replies with the downloader's success text
func (n *ChatNotifier) NotifySucceeded(ctx context.Context, msg domain.IncomingMessage, result *domain.DownloadResult) {
	n.send(ctx, msg, result.Message)
}

// NotifyFailed replies with the message for the failure category. The raw
// error never reaches the chat.
func (n *ChatNotifier) NotifyFailed(ctx context.Context, msg domain.IncomingMessage, err error) {
	kind := domain.ClassifyFailure(err)
	n.logger.Debug("Notifying failure",
		zap.String("message_id", msg.ID),
		zap.String("kind", string(kind)),
		zap.Error(err))
	n.send(ctx, msg, n.FailureText(kind))
}

// FailureText returns the configured reply for a failure category
func (n *ChatNotifier) FailureText(kind domain.FailureKind) string {
	switch kind {
	case domain.FailureInvalidURL:
		return n.messages.InvalidURL
	case domain.FailureVideoNotFound:
		return n.messages.VideoNotFound
	case domain.FailureTimeout:
		return n.messages.Timeout
	case domain.FailureDelivery:
		return n.messages.DeliveryFailed
	default:
		return n.messages.DownloadFailed
	}
}

// Caption returns the caption for the delivered video
func (n *ChatNotifier) Caption(msg domain.IncomingMessage) string {
	if !n.messages.MentionSender || msg.FromMe {
		return n.messages.Caption
	}
	name := msg.SenderDisplayName
	if name == "" {
		name = msg.SenderID
	}
	if name == "" {
		return n.messages.Caption
	}
	return fmt.Sprintf("%s @%s", n.messages.Caption, name)
}

func (n *ChatNotifier) send(ctx context.Context, msg domain.IncomingMessage, text string) {
	if text == "" {
		return
	}
	if err := n.messenger.Reply(ctx, msg, text); err != nil {
		n.logger.Error("Failed to send reply",
			zap.String("chat_id", msg.ChatID),
			zap.String("text", truncateString(text, 60)),
			zap.Error(err))
		return
	}
	n.logger.Debug("Reply sent",
		zap.String("chat_id", msg.ChatID),
		zap.String("text", truncateString(text, 60)))
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
