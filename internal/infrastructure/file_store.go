package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/yourusername/vidbot/internal/domain"
)

const (
	videoExt      = ".mp4"
	maxTitleRunes = 120
)

// FileStore stages downloads in the incoming directory and promotes
// finished files into the videos directory under collision-free names.
type FileStore struct {
	incomingDir string
	videosDir   string
	mu          sync.Mutex
}

// NewFileStore creates a new file store
func NewFileStore(incomingDir, videosDir string) *FileStore {
	return &FileStore{
		incomingDir: incomingDir,
		videosDir:   videosDir,
	}
}

// VideosDir returns the directory holding delivered videos
func (s *FileStore) VideosDir() string {
	return s.videosDir
}

// EnsureDirs creates the incoming and videos directories
func (s *FileStore) EnsureDirs() error {
	for _, dir := range []string{s.incomingDir, s.videosDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Save streams r into a staging file for jobID, then promotes it to the
// videos directory as name + ".mp4". The final path is returned. Nothing is
// promoted once ctx is done.
func (s *FileStore) Save(ctx context.Context, jobID string, r io.Reader, name string) (string, error) {
	if err := s.EnsureDirs(); err != nil {
		return "", err
	}

	tempPath := filepath.Join(s.incomingDir, jobID+".part")
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write video: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	finalPath, err := s.promote(ctx, tempPath, name)
	if err != nil {
		os.Remove(tempPath)
		return "", err
	}
	return finalPath, nil
}

// promote moves a staged file into the videos directory. An existing file
// with the same name gets a " (n)" suffix.
func (s *FileStore) promote(ctx context.Context, tempPath, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("download abandoned before promotion: %w", err)
	}

	destPath := s.availablePath(name)
	if err := os.Rename(tempPath, destPath); err != nil {
		// If rename fails, try copy and delete
		if err := copyFile(tempPath, destPath); err != nil {
			return "", fmt.Errorf("failed to move file %s: %w", tempPath, err)
		}
		os.Remove(tempPath)
	}
	return destPath, nil
}

func (s *FileStore) availablePath(name string) string {
	candidate := filepath.Join(s.videosDir, name+videoExt)
	for n := 1; fileExists(candidate); n++ {
		candidate = filepath.Join(s.videosDir, fmt.Sprintf("%s (%d)%s", name, n, videoExt))
	}
	return candidate
}

// WriteMetadata stores a JSON sidecar describing the job next to the video
func (s *FileStore) WriteMetadata(filePath string, job *domain.DownloadJob, title string) error {
	metadata := map[string]interface{}{
		"id":            job.ID,
		"message_id":    job.MessageID,
		"chat_id":       job.ChatID,
		"sender_id":     job.SenderID,
		"platform":      job.Platform,
		"url":           job.URL,
		"title":         title,
		"file":          filepath.Base(filePath),
		"downloaded_at": time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(domain.MetadataPath(filePath), data, 0644)
}

// SanitizeTitle turns a video title into a safe file name stem. An empty
// result falls back to fallback.
func SanitizeTitle(title, fallback string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(name); len(runes) > maxTitleRunes {
		name = string(runes[:maxTitleRunes])
	}
	name = strings.Trim(name, " .")

	if name == "" {
		return fallback
	}
	return name
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
