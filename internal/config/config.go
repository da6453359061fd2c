package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置结构
type Config struct {
	// AICreator 后端 API 配置
	API APIConfig `yaml:"api" json:"api"`

	// HTTP 客户端配置
	HTTPClient HTTPClientConfig `yaml:"http_client" json:"http_client"`

	// 生成任务配置
	Generation GenerationConfig `yaml:"generation" json:"generation"`

	// 会话存储配置
	Session SessionConfig `yaml:"session" json:"session"`

	// 日志配置
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig 后端 API 配置
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	UploadTimeout  time.Duration `yaml:"upload_timeout" json:"upload_timeout"`
	TLSSkipVerify  bool          `yaml:"tls_skip_verify" json:"tls_skip_verify"`
}

// HTTPClientConfig HTTP 客户端配置
type HTTPClientConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" json:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host" json:"max_conns_per_host"`
	RetryCount          int           `yaml:"retry_count" json:"retry_count"`
	RetryWaitTime       time.Duration `yaml:"retry_wait_time" json:"retry_wait_time"`
	RetryMaxWaitTime    time.Duration `yaml:"retry_max_wait_time" json:"retry_max_wait_time"`
}

// GenerationConfig 生成任务轮询配置
type GenerationConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts" json:"max_poll_attempts"`
	MaxPollDuration time.Duration `yaml:"max_poll_duration" json:"max_poll_duration"`
	CancelTimeout   time.Duration `yaml:"cancel_timeout" json:"cancel_timeout"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	StorePath string `yaml:"store_path" json:"store_path"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Load 加载配置，优先级：配置文件 > 环境变量 > 默认值
func Load() (*Config, error) {
	// 1. 设置默认配置
	config := getDefaultConfig()

	// 2. 尝试加载 .env 文件
	_ = godotenv.Load()

	// 3. 尝试加载配置文件
	if err := loadConfigFile(config); err != nil {
		// 配置文件加载失败不是致命错误，继续使用环境变量和默认值
		fmt.Printf("Warning: Failed to load config file: %v\n", err)
	}

	// 4. 环境变量覆盖
	overrideWithEnv(config)

	// 5. 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://api.aicreator.app/v1",
			RequestTimeout: 30 * time.Second,
			UploadTimeout:  60 * time.Second,
			TLSSkipVerify:  false,
		},
		HTTPClient: HTTPClientConfig{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     50,
			RetryCount:          0, // 单次调用不自动重试，重试策略由调用方决定
			RetryWaitTime:       1 * time.Second,
			RetryMaxWaitTime:    10 * time.Second,
		},
		Generation: GenerationConfig{
			PollInterval:    2 * time.Second,
			MaxPollAttempts: 150,
			MaxPollDuration: 5 * time.Minute,
			CancelTimeout:   5 * time.Second,
		},
		Session: SessionConfig{
			StorePath: defaultSessionPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// defaultSessionPath 默认会话文件路径
func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aicreator/session.json"
	}
	return filepath.Join(home, ".aicreator", "session.json")
}

// loadConfigFile 加载配置文件
func loadConfigFile(config *Config) error {
	configPaths := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"./configs/config.yaml",
		"./configs/config.yml",
		"./configs/config.json",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return loadFromFile(path, config)
		}
	}

	// 检查环境变量指定的配置文件
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath, config)
	}

	return fmt.Errorf("no config file found")
}

// loadFromFile 从文件加载配置
func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// overrideWithEnv 用环境变量覆盖配置
func overrideWithEnv(config *Config) {
	// API 配置
	if baseURL := os.Getenv("AICREATOR_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("AICREATOR_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.API.RequestTimeout = t
		}
	}
	if skipVerify := os.Getenv("TLS_SKIP_VERIFY"); skipVerify != "" {
		if skip, err := strconv.ParseBool(skipVerify); err == nil {
			config.API.TLSSkipVerify = skip
		}
	}

	// 生成任务配置
	if interval := os.Getenv("GENERATION_POLL_INTERVAL"); interval != "" {
		if t, err := time.ParseDuration(interval); err == nil {
			config.Generation.PollInterval = t
		}
	}
	if attempts := os.Getenv("GENERATION_MAX_POLL_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			config.Generation.MaxPollAttempts = n
		}
	}
	if duration := os.Getenv("GENERATION_MAX_POLL_DURATION"); duration != "" {
		if t, err := time.ParseDuration(duration); err == nil {
			config.Generation.MaxPollDuration = t
		}
	}

	// 会话存储配置
	if path := os.Getenv("SESSION_STORE_PATH"); path != "" {
		config.Session.StorePath = path
	}

	// 日志配置
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.API.BaseURL == "" {
		errs = append(errs, "AICREATOR_BASE_URL is required")
	} else if _, err := url.Parse(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("AICREATOR_BASE_URL is invalid: %v", err))
	}

	if c.API.RequestTimeout < 0 {
		errs = append(errs, "AICREATOR_REQUEST_TIMEOUT must be positive")
	}

	if c.Generation.PollInterval <= 0 {
		errs = append(errs, "GENERATION_POLL_INTERVAL must be positive")
	}
	if c.Generation.MaxPollAttempts <= 0 {
		errs = append(errs, "GENERATION_MAX_POLL_ATTEMPTS must be positive")
	}
	if c.Generation.MaxPollDuration <= 0 {
		errs = append(errs, "GENERATION_MAX_POLL_DURATION must be positive")
	}

	if c.Session.StorePath == "" {
		errs = append(errs, "SESSION_STORE_PATH is required")
	}

	validLevels := []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	if !contains(validLevels, c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLevels, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// contains 检查字符串是否在切片中
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
