package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Scope    ScopeConfig    `mapstructure:"scope"`
	Download DownloadConfig `mapstructure:"download"`
	Facebook FacebookConfig `mapstructure:"facebook"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Messages MessagesConfig `mapstructure:"messages"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SessionConfig contains messaging session configuration
type SessionConfig struct {
	StorePath       string        `mapstructure:"store_path"`
	QRFile          string        `mapstructure:"qr_file"`
	PrintQRTerminal bool          `mapstructure:"print_qr_terminal"`
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay"`
}

// ScopeConfig decides which conversations the bot reacts to
type ScopeConfig struct {
	GroupName   string `mapstructure:"group_name"` // empty = no restriction
	AllowDirect bool   `mapstructure:"allow_direct"`
	IncludeSelf bool   `mapstructure:"include_self"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir         string        `mapstructure:"base_dir"`
	VideosDir       string        `mapstructure:"videos_dir"`
	IncomingDir     string        `mapstructure:"incoming_dir"`
	LogsDir         string        `mapstructure:"logs_dir"`
	DatabasePath    string        `mapstructure:"database_path"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	DedupRetention  time.Duration `mapstructure:"dedup_retention"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// FacebookConfig configures the resolver-based Facebook scraper
type FacebookConfig struct {
	ResolverURL        string `mapstructure:"resolver_url"`
	UserAgent          string `mapstructure:"user_agent"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	OptionIndex        int    `mapstructure:"option_index"`
}

// BrowserConfig configures the headless browser used by the generic scraper
type BrowserConfig struct {
	ExecPath    string        `mapstructure:"exec_path"`
	Headless    bool          `mapstructure:"headless"`
	NoSandbox   bool          `mapstructure:"no_sandbox"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// MessagesConfig holds the chat reply templates
type MessagesConfig struct {
	YouTubeSuccess  string `mapstructure:"youtube_success"` // %s = title
	FacebookSuccess string `mapstructure:"facebook_success"`
	GenericSuccess  string `mapstructure:"generic_success"`
	Caption         string `mapstructure:"caption"`
	MentionSender   bool   `mapstructure:"mention_sender"`
	InvalidURL      string `mapstructure:"invalid_url"`
	VideoNotFound   string `mapstructure:"video_not_found"`
	DownloadFailed  string `mapstructure:"download_failed"`
	DeliveryFailed  string `mapstructure:"delivery_failed"`
	Timeout         string `mapstructure:"timeout"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	BusFile    string `mapstructure:"bus_file"`    // relative to logs_dir unless absolute
}

// BusFilePath returns the absolute location of the durable log feed
func (c *Config) BusFilePath() string {
	if filepath.IsAbs(c.Logging.BusFile) {
		return c.Logging.BusFile
	}
	return filepath.Join(c.Download.LogsDir, c.Logging.BusFile)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Session: SessionConfig{
			StorePath:       "$HOME/.vidbot/session/whatsapp.db",
			QRFile:          "$HOME/.vidbot/qrcode.png",
			PrintQRTerminal: true,
			ReconnectDelay:  10 * time.Second,
		},
		Scope: ScopeConfig{
			GroupName:   "",
			AllowDirect: false,
			IncludeSelf: true,
		},
		Download: DownloadConfig{
			BaseDir:         "$HOME/.vidbot",
			VideosDir:       "$HOME/.vidbot/videos",
			IncomingDir:     "$HOME/.vidbot/incoming",
			LogsDir:         "$HOME/.vidbot/logs",
			DatabasePath:    "$HOME/.vidbot/jobs.db",
			ConcurrentLimit: 8,
			JobTimeout:      10 * time.Minute,
			DedupRetention:  time.Hour,
			SweepInterval:   5 * time.Minute,
		},
		Facebook: FacebookConfig{
			ResolverURL:        "https://www.getfvid.com/downloader",
			UserAgent:          "Mozilla/5.0",
			InsecureSkipVerify: true,
			OptionIndex:        1,
		},
		Browser: BrowserConfig{
			ExecPath:    "",
			Headless:    true,
			NoSandbox:   true,
			IdleTimeout: 30 * time.Second,
		},
		Messages: MessagesConfig{
			YouTubeSuccess:  "Downloaded YouTube video: %s",
			FacebookSuccess: "Downloaded Facebook video.",
			GenericSuccess:  "Downloaded social media video.",
			Caption:         "Here is your video!",
			MentionSender:   false,
			InvalidURL:      "Invalid video URL!",
			VideoNotFound:   "Could not download video.",
			DownloadFailed:  "Could not download video.",
			DeliveryFailed:  "The video was downloaded but could not be sent.",
			Timeout:         "The download took too long and was cancelled.",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			BusFile:    "combined.log",
		},
	}
}
