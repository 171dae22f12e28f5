package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/vidbot/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// filterColumns lists the job columns FindAll accepts as filters
var filterColumns = map[string]bool{
	"status":       true,
	"platform":     true,
	"chat_id":      true,
	"sender_id":    true,
	"message_id":   true,
	"received_via": true,
	"delivered":    true,
}

// SQLiteJobRepository implements JobRepository and ChatRepository using SQLite
type SQLiteJobRepository struct {
	db *gorm.DB
}

// NewSQLiteJobRepository creates a new SQLite repository
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadJob{}, &domain.ChatInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Create creates a new job. A second job for the same message id violates
// the unique index and fails.
func (r *SQLiteJobRepository) Create(job *domain.DownloadJob) error {
	return r.db.Create(job).Error
}

// Update updates an existing job
func (r *SQLiteJobRepository) Update(job *domain.DownloadJob) error {
	return r.db.Save(job).Error
}

// FindByID finds a job by ID
func (r *SQLiteJobRepository) FindByID(id string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByMessageID finds the job created for a message
// Returns nil if not found
func (r *SQLiteJobRepository) FindByMessageID(messageID string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	err := r.db.Where("message_id = ?", messageID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// FindAll finds jobs with optional filters, newest first. A limit <= 0 returns all.
func (r *SQLiteJobRepository) FindAll(filters map[string]interface{}, limit int) ([]*domain.DownloadJob, error) {
	var jobs []*domain.DownloadJob
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	query = query.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&jobs).Error
	return jobs, err
}

// GetStats returns job statistics
func (r *SQLiteJobRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.DownloadJob{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.JobStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.DownloadJob{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusPending:
			stats.Pending = sc.Count
		case domain.StatusRunning:
			stats.Running = sc.Count
		case domain.StatusSucceeded:
			stats.Succeeded = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// FailUnfinished marks every PENDING or RUNNING job as FAILED with reason
func (r *SQLiteJobRepository) FailUnfinished(reason string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&domain.DownloadJob{}).
		Where("status IN ?", []domain.JobStatus{domain.StatusPending, domain.StatusRunning}).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_message": reason,
			"completed_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// Close closes the database connection
func (r *SQLiteJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// ChatRepository implementation
// ============================================================================

// GetChat retrieves the cached chat for a given chat ID
// Returns nil if not found
func (r *SQLiteJobRepository) GetChat(chatID string) (*domain.ChatInfo, error) {
	var chat domain.ChatInfo
	err := r.db.Where("chat_id = ?", chatID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

// SaveChat inserts or updates a chat record
func (r *SQLiteJobRepository) SaveChat(chat *domain.ChatInfo) error {
	chat.LastUpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "is_group", "last_updated_at"}),
	}).Create(chat).Error
}
