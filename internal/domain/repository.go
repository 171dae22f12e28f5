package domain

import "time"

// JobRepository defines the interface for download job persistence
type JobRepository interface {
	// Create creates a new job
	Create(job *DownloadJob) error

	// Update updates an existing job
	Update(job *DownloadJob) error

	// FindByID finds a job by ID
	FindByID(id string) (*DownloadJob, error)

	// FindByMessageID finds the job created for a message, nil if none
	FindByMessageID(messageID string) (*DownloadJob, error)

	// FindAll finds jobs with optional filters, newest first
	FindAll(filters map[string]interface{}, limit int) ([]*DownloadJob, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)

	// FailUnfinished marks jobs left PENDING or RUNNING by a previous process as FAILED
	FailUnfinished(reason string) (int64, error)
}

// ChatRepository caches chat metadata resolved through the session
type ChatRepository interface {
	// GetChat returns the cached chat, nil if not cached
	GetChat(chatID string) (*ChatInfo, error)

	// SaveChat inserts or updates a chat record
	SaveChat(chat *ChatInfo) error
}

// ChatInfo holds the cached metadata of a conversation
type ChatInfo struct {
	ChatID        string    `json:"chat_id" gorm:"primaryKey"`
	Name          string    `json:"name"`
	IsGroup       bool      `json:"is_group"`
	LastUpdatedAt time.Time `json:"last_updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ChatInfo) TableName() string {
	return "chats"
}

// IsStale reports whether the record is older than maxAge
func (c *ChatInfo) IsStale(maxAge time.Duration) bool {
	return time.Since(c.LastUpdatedAt) > maxAge
}
