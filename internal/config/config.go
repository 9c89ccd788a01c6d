package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/msgsplit/internal/fragmenter"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Fragmenter defaults
	MaxLen    int
	BlockTags string // comma-separated; empty means the built-in set
	MaxDepth  int
	Strict    bool

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Delivery
	TelegramToken   string
	TelegramChatID  int64
	TelegramAPIURL  string // bot API endpoint format, empty for the public API
	WebhookURL      string
	WebhookAPIKey   string
	DeliveryTimeout time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Variables already set win. A missing
// file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MSGSPLIT_API_KEY"),

		MaxLen:    envInt("MAX_LEN", fragmenter.DefaultMaxLen),
		BlockTags: os.Getenv("BLOCK_TAGS"),
		MaxDepth:  envInt("MAX_DEPTH", fragmenter.DefaultMaxDepth),
		Strict:    envBool("STRICT", false),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  envInt64("TELEGRAM_CHAT_ID", 0),
		TelegramAPIURL:  os.Getenv("TELEGRAM_API_URL"),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		WebhookAPIKey:   os.Getenv("WEBHOOK_API_KEY"),
		DeliveryTimeout: envDuration("DELIVERY_TIMEOUT", 30*time.Second),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}

	return cfg
}

// Validate checks the settings the HTTP server needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("MSGSPLIT_API_KEY is required")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if _, err := c.FragmenterOptions(); err != nil {
		return err
	}
	return nil
}

// FragmenterOptions builds validated fragmenter options from the config.
func (c Config) FragmenterOptions() (fragmenter.Options, error) {
	opts := fragmenter.Options{
		MaxLen: c.MaxLen,
		Blocks: fragmenter.DefaultBlocks(),
		Strict: c.Strict,
	}
	if strings.TrimSpace(c.BlockTags) != "" {
		blocks, err := fragmenter.ParseBlockSet(c.BlockTags)
		if err != nil {
			return fragmenter.Options{}, err
		}
		opts.Blocks = blocks
	}
	opts = opts.WithMaxDepth(c.MaxDepth)
	if err := opts.Validate(); err != nil {
		return fragmenter.Options{}, err
	}
	return opts, nil
}

// Profile is a YAML file of fragmenter settings. Unset fields keep the
// current value.
type Profile struct {
	MaxLen    *int     `yaml:"max_len"`
	BlockTags []string `yaml:"block_tags"`
	MaxDepth  *int     `yaml:"max_depth"`
	Strict    *bool    `yaml:"strict"`
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

// Apply overlays the profile onto c.
func (p Profile) Apply(c Config) Config {
	if p.MaxLen != nil {
		c.MaxLen = *p.MaxLen
	}
	if len(p.BlockTags) > 0 {
		c.BlockTags = strings.Join(p.BlockTags, ",")
	}
	if p.MaxDepth != nil {
		c.MaxDepth = *p.MaxDepth
	}
	if p.Strict != nil {
		c.Strict = *p.Strict
	}
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
