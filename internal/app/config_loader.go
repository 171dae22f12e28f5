package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/yourusername/vidbot/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.vidbot")
		v.AddConfigPath("/etc/vidbot")
	}

	v.SetEnvPrefix("VIDBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes every known key visible to AutomaticEnv during Unmarshal,
// which otherwise only sees keys present in the config file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port",
		"session.store_path", "session.qr_file", "session.print_qr_terminal", "session.reconnect_delay",
		"scope.group_name", "scope.allow_direct", "scope.include_self",
		"download.base_dir", "download.videos_dir", "download.incoming_dir", "download.logs_dir",
		"download.database_path", "download.concurrent_limit", "download.job_timeout",
		"download.dedup_retention", "download.sweep_interval",
		"facebook.resolver_url", "facebook.user_agent", "facebook.insecure_skip_verify", "facebook.option_index",
		"browser.exec_path", "browser.headless", "browser.no_sandbox", "browser.idle_timeout",
		"messages.mention_sender", "messages.caption",
		"logging.level", "logging.format", "logging.output_path", "logging.bus_file",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Session.StorePath = expandPath(config.Session.StorePath)
	config.Session.QRFile = expandPath(config.Session.QRFile)
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.VideosDir = expandPath(config.Download.VideosDir)
	config.Download.IncomingDir = expandPath(config.Download.IncomingDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Download.DatabasePath = expandPath(config.Download.DatabasePath)
	config.Browser.ExecPath = expandPath(config.Browser.ExecPath)
	config.Logging.BusFile = expandPath(config.Logging.BusFile)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.VideosDir == "" || config.Download.IncomingDir == "" {
		return fmt.Errorf("video directories not configured")
	}

	if config.Download.DatabasePath == "" {
		return fmt.Errorf("job database path not configured")
	}

	if config.Session.StorePath == "" {
		return fmt.Errorf("session store path not configured")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Download.JobTimeout <= 0 {
		return fmt.Errorf("job timeout must be positive")
	}

	if config.Download.DedupRetention <= 0 {
		return fmt.Errorf("dedup retention must be positive")
	}

	if config.Download.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	if config.Facebook.OptionIndex < 0 {
		return fmt.Errorf("facebook option index cannot be negative")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	if config.Logging.BusFile == "" {
		config.Logging.BusFile = "combined.log"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Decode through mapstructure so the file uses the same keys LoadConfig reads
	sections := map[string]interface{}{}
	if err := mapstructure.Decode(config, &sections); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	for key, value := range sections {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
