package app

import (
	"github.com/yourusername/vidbot/internal/domain"
)

// MessageFilter decides whether a message is in the bot's scope
type MessageFilter struct {
	groupName   string
	allowDirect bool
	includeSelf bool
}

// NewMessageFilter creates a filter from scope configuration
func NewMessageFilter(config domain.ScopeConfig) *MessageFilter {
	return &MessageFilter{
		groupName:   config.GroupName,
		allowDirect: config.AllowDirect,
		includeSelf: config.IncludeSelf,
	}
}

// InScope reports whether msg should be processed. With no group name
// configured every conversation is in scope.
func (f *MessageFilter) InScope(msg domain.IncomingMessage) bool {
	if msg.ReceivedVia == domain.ViaSelfEcho && (!msg.FromMe || !f.includeSelf) {
		return false
	}

	if f.groupName == "" {
		return true
	}

	if msg.IsGroup {
		return msg.ChatName == f.groupName
	}

	return f.allowDirect
}
