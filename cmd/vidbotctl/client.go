package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	readyPollInterval = 500 * time.Millisecond
)

// apiClient talks to a running vidbot HTTP API
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// getJSON fetches path with query and decodes the body into out
func (c *apiClient) getJSON(path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := c.http.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected response: HTTP %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

// isReady reports whether the bot session is authenticated
func (c *apiClient) isReady() bool {
	resp, err := c.http.Get(c.baseURL + "/ready")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// waitForReady polls /ready until it succeeds or timeout elapses
func (c *apiClient) waitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if c.isReady() {
			return nil
		}
		time.Sleep(readyPollInterval)
	}

	return fmt.Errorf("session not ready within %v", timeout)
}

type jobView struct {
	ID           string `json:"id"`
	MessageID    string `json:"message_id"`
	ChatID       string `json:"chat_id"`
	SenderName   string `json:"sender_name"`
	Platform     string `json:"platform"`
	URL          string `json:"url"`
	Status       string `json:"status"`
	Title        string `json:"title"`
	FilePath     string `json:"file_path"`
	ErrorMessage string `json:"error_message"`
	Delivered    bool   `json:"delivered"`
	CreatedAt    string `json:"created_at"`
}

type jobList struct {
	Count int       `json:"count"`
	Jobs  []jobView `json:"jobs"`
}

type statsView struct {
	Jobs struct {
		Total     int64 `json:"total"`
		Pending   int64 `json:"pending"`
		Running   int64 `json:"running"`
		Succeeded int64 `json:"succeeded"`
		Failed    int64 `json:"failed"`
	} `json:"jobs"`
	Active  int64 `json:"active"`
	Tracked int   `json:"tracked"`
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type logList struct {
	Count   int        `json:"count"`
	Entries []logEntry `json:"entries"`
}

type sessionView struct {
	State       string `json:"state"`
	QRAvailable bool   `json:"qr_available"`
}
