package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Quote struct {
		BaseURL    string        `yaml:"base_url"`
		Limit      int           `yaml:"limit"`
		Timeout    time.Duration `yaml:"timeout"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"quote"`
	Universe struct {
		ListURL        string        `yaml:"list_url"`
		CacheFile      string        `yaml:"cache_file"`
		ExcludedPrefix string        `yaml:"excluded_prefix"`
		PageSize       int           `yaml:"page_size"`
		MaxPages       int           `yaml:"max_pages"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"universe"`
	Scan struct {
		BatchSize     int           `yaml:"batch_size"`
		BatchPause    time.Duration `yaml:"batch_pause"`
		MaxCandidates int           `yaml:"max_candidates"`
		ProgressEvery int           `yaml:"progress_every"`
	} `yaml:"scan"`
	LLM struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
		BatchSize   int           `yaml:"batch_size"`
		BatchPause  time.Duration `yaml:"batch_pause"`

		// Consecutive request failures before enrichment is skipped for BreakerCooldown.
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"llm"`
	Storage struct {
		ResultDir  string `yaml:"result_dir"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart *bool  `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults fill every unset field.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("RESULT_DIR"); v != "" {
		cfg.Storage.ResultDir = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.RunOnStart = &b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Defaults
	if cfg.Quote.BaseURL == "" {
		cfg.Quote.BaseURL = "http://push2his.eastmoney.com/api/qt/stock/kline/get"
	}
	if cfg.Quote.Limit == 0 {
		cfg.Quote.Limit = 150
	}
	if cfg.Quote.Timeout == 0 {
		cfg.Quote.Timeout = 5 * time.Second
	}
	if cfg.Quote.RetryDelay == 0 {
		cfg.Quote.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Universe.ListURL == "" {
		cfg.Universe.ListURL = "http://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/Market_Center.getHQNodeData"
	}
	if cfg.Universe.CacheFile == "" {
		cfg.Universe.CacheFile = "data/stock_list_cache.json"
	}
	if cfg.Universe.ExcludedPrefix == "" {
		cfg.Universe.ExcludedPrefix = "920"
	}
	if cfg.Universe.PageSize == 0 {
		cfg.Universe.PageSize = 100
	}
	if cfg.Universe.MaxPages == 0 {
		cfg.Universe.MaxPages = 60
	}
	if cfg.Universe.Timeout == 0 {
		cfg.Universe.Timeout = 10 * time.Second
	}
	if cfg.Scan.BatchSize == 0 {
		cfg.Scan.BatchSize = 50
	}
	if cfg.Scan.BatchPause == 0 {
		cfg.Scan.BatchPause = 200 * time.Millisecond
	}
	if cfg.Scan.MaxCandidates == 0 {
		cfg.Scan.MaxCandidates = 30
	}
	if cfg.Scan.ProgressEvery == 0 {
		cfg.Scan.ProgressEvery = 1000
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com/chat/completions"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 180 * time.Second
	}
	if cfg.LLM.BatchSize == 0 {
		cfg.LLM.BatchSize = 5
	}
	if cfg.LLM.BatchPause == 0 {
		cfg.LLM.BatchPause = 1500 * time.Millisecond
	}
	if cfg.LLM.BreakerFailures == 0 {
		cfg.LLM.BreakerFailures = 3
	}
	if cfg.LLM.BreakerCooldown == 0 {
		cfg.LLM.BreakerCooldown = 10 * time.Minute
	}
	if cfg.Storage.ResultDir == "" {
		cfg.Storage.ResultDir = "data/results"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 30 * time.Minute
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "@every 1h"
	}
	if cfg.Schedule.RunOnStart == nil {
		on := true
		cfg.Schedule.RunOnStart = &on
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3001"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and sane.
func (c *Config) Validate() error {
	if c.Quote.BaseURL == "" {
		return fmt.Errorf("quote.base_url is required")
	}
	if c.Quote.Limit < 30 {
		return fmt.Errorf("quote.limit must be at least 30")
	}
	if c.Universe.PageSize <= 0 || c.Universe.MaxPages <= 0 {
		return fmt.Errorf("universe.page_size and universe.max_pages must be positive")
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be positive")
	}
	if c.Scan.MaxCandidates <= 0 {
		return fmt.Errorf("scan.max_candidates must be positive")
	}
	if c.LLM.BatchSize <= 0 {
		return fmt.Errorf("llm.batch_size must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// RunOnStart reports whether a cycle should run immediately at startup.
func (c *Config) RunOnStart() bool {
	return c.Schedule.RunOnStart == nil || *c.Schedule.RunOnStart
}

// LLMEnabled reports whether enrichment requests can be sent.
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
