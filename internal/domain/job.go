package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a download job
type JobStatus string

const (
	StatusPending   JobStatus = "PENDING"
	StatusRunning   JobStatus = "RUNNING"
	StatusSucceeded JobStatus = "SUCCEEDED"
	StatusFailed    JobStatus = "FAILED"
)

// DownloadJob tracks one video acquisition attempt, keyed by message id
type DownloadJob struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	MessageID    string     `json:"message_id" gorm:"not null;uniqueIndex"`
	ChatID       string     `json:"chat_id" gorm:"not null;index"`
	SenderID     string     `json:"sender_id"`
	SenderName   string     `json:"sender_name,omitempty"`
	ReceivedVia  string     `json:"received_via"`
	Platform     Platform   `json:"platform" gorm:"not null"`
	URL          string     `json:"url" gorm:"not null"`
	Status       JobStatus  `json:"status" gorm:"not null;index"`
	FilePath     string     `json:"file_path,omitempty"`
	Title        string     `json:"title,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Delivered    bool       `json:"delivered"`
	DeliveryErr  string     `json:"delivery_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (DownloadJob) TableName() string {
	return "download_jobs"
}

// NewDownloadJob creates a pending job for a message and its extracted link
func NewDownloadJob(msg IncomingMessage, link ExtractedLink) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		ID:          uuid.New().String(),
		MessageID:   msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderDisplayName,
		ReceivedVia: string(msg.ReceivedVia),
		Platform:    link.Platform,
		URL:         link.RawURL,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Link returns the link this job downloads
func (j *DownloadJob) Link() ExtractedLink {
	return ExtractedLink{Platform: j.Platform, RawURL: j.URL}
}

// MarkRunning moves a pending job to running. Returns false on any other status.
func (j *DownloadJob) MarkRunning() bool {
	if j.Status != StatusPending {
		return false
	}
	j.Status = StatusRunning
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
	return true
}

// MarkSucceeded marks the job as succeeded with the produced file
func (j *DownloadJob) MarkSucceeded(filePath, title string) bool {
	if j.Status != StatusRunning {
		return false
	}
	j.Status = StatusSucceeded
	j.FilePath = filePath
	j.Title = title
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// MarkFailed marks the job as failed. A terminal job is left untouched.
func (j *DownloadJob) MarkFailed(err error) bool {
	if j.IsTerminal() {
		return false
	}
	j.Status = StatusFailed
	if err != nil {
		j.ErrorMessage = err.Error()
	}
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// MarkDelivered records the outcome of sending the file back. Status is not changed.
func (j *DownloadJob) MarkDelivered(err error) {
	j.Delivered = err == nil
	if err != nil {
		j.DeliveryErr = err.Error()
	}
	j.UpdatedAt = time.Now()
}

// IsTerminal checks if the job is in a terminal state
func (j *DownloadJob) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// JobStats represents download job statistics
type JobStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// ValidateStatus checks if a job status is valid
func ValidateStatus(status JobStatus) bool {
	switch status {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}
