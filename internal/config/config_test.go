package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/msgsplit/internal/fragmenter"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MAX_LEN", "BLOCK_TAGS", "MAX_DEPTH", "STRICT", "WORKER_COUNT", "JOB_TTL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %s", cfg.Port)
	}
	if cfg.MaxLen != fragmenter.DefaultMaxLen {
		t.Errorf("expected max len %d, got %d", fragmenter.DefaultMaxLen, cfg.MaxLen)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.JobTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAX_LEN", "280")
	t.Setenv("BLOCK_TAGS", "p,div")
	t.Setenv("STRICT", "true")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "bogus")

	cfg := Load()
	if cfg.MaxLen != 280 || cfg.BlockTags != "p,div" || !cfg.Strict {
		t.Errorf("unexpected fragmenter settings: %+v", cfg)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected unparsable TTL to fall back to 1h, got %v", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{APIKey: "k", MaxLen: 4096}, false},
		{"missing key", Config{MaxLen: 4096}, true},
		{"telegram without chat", Config{APIKey: "k", MaxLen: 4096, TelegramToken: "t"}, true},
		{"bad max len", Config{APIKey: "k", MaxLen: 0}, true},
		{"bad block tags", Config{APIKey: "k", MaxLen: 4096, BlockTags: "<p>"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFragmenterOptions(t *testing.T) {
	opts, err := Config{MaxLen: 100, BlockTags: "div, UL", MaxDepth: 3}.FragmenterOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.MaxLen != 100 || !opts.Blocks.IsBlock("ul") || opts.Blocks.IsBlock("p") || opts.MaxDepth != 3 {
		t.Errorf("unexpected options: max=%d tags=%v depth=%d", opts.MaxLen, opts.Blocks.Tags(), opts.MaxDepth)
	}

	// An explicit zero depth turns block splitting off.
	opts, err = Config{MaxLen: 3, BlockTags: "div", MaxDepth: 0}.FragmenterOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Blocks.Len() != 0 {
		t.Errorf("expected no block tags for max_depth 0, got %v", opts.Blocks.Tags())
	}

	_, err = Config{MaxLen: 100, MaxDepth: -1}.FragmenterOptions()
	if !errors.Is(err, fragmenter.ErrConfig) {
		t.Errorf("expected ErrConfig for negative depth, got %v", err)
	}

	_, err = Config{MaxLen: -5}.FragmenterOptions()
	if !errors.Is(err, fragmenter.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telegram.yaml")
	data := "max_len: 4096\nblock_tags: [p, b, i]\nstrict: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := p.Apply(Config{MaxLen: 100, MaxDepth: 7})
	if cfg.MaxLen != 4096 || cfg.BlockTags != "p,b,i" || !cfg.Strict {
		t.Errorf("profile not applied: %+v", cfg)
	}
	if cfg.MaxDepth != 7 {
		t.Errorf("expected unset max_depth to keep 7, got %d", cfg.MaxDepth)
	}
}

func TestLoadProfile_Errors(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("max_len: [oops"), 0o644)
	if _, err := LoadProfile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("MSGSPLIT_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MSGSPLIT_TEST_DOTENV", "")
	os.Unsetenv("MSGSPLIT_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("MSGSPLIT_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
}
