package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/imageurl"
)

// Config holds the console settings.
type Config struct {
	APIURL            string
	LogFile           string
	StaleTime         time.Duration
	PageSize          int
	PollInterval      time.Duration
	SecureImages      bool
	ImageHostRewrites map[string]string
}

// APIURLEnv overrides api_url when set and non-empty.
const APIURLEnv = "MARQUEE_API_URL"

const (
	defaultConfigPath   = "~/.config/marquee/config.toml"
	defaultLogFile      = "~/.local/state/marquee/marquee.log"
	defaultStaleTime    = 5 * time.Minute
	defaultPageSize     = 10
	defaultPollInterval = 30 * time.Second
	minPollInterval     = 5 * time.Second
	maxPageSize         = 100
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:            catalog.DefaultBaseURL,
		LogFile:           mustExpand(defaultLogFile),
		StaleTime:         defaultStaleTime,
		PageSize:          defaultPageSize,
		PollInterval:      defaultPollInterval,
		SecureImages:      true,
		ImageHostRewrites: imageurl.DefaultHostRewrites(),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// The environment is applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL            string            `toml:"api_url"`
		LogFile           string            `toml:"log_file"`
		StaleMinutes      *int              `toml:"stale_minutes"`
		PageSize          int               `toml:"page_size"`
		PollSeconds       int               `toml:"poll_seconds"`
		SecureImages      *bool             `toml:"secure_images"`
		ImageHostRewrites map[string]string `toml:"image_host_rewrites"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if raw.StaleMinutes != nil {
		if *raw.StaleMinutes < 0 {
			return Config{}, fmt.Errorf("stale_minutes must be >= 0, got %d", *raw.StaleMinutes)
		}
		cfg.StaleTime = time.Duration(*raw.StaleMinutes) * time.Minute
	}
	if raw.PageSize > 0 {
		cfg.PageSize = min(raw.PageSize, maxPageSize)
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = max(time.Duration(raw.PollSeconds)*time.Second, minPollInterval)
	}
	if raw.SecureImages != nil {
		cfg.SecureImages = *raw.SecureImages
	}
	if raw.ImageHostRewrites != nil {
		rewrites := make(map[string]string, len(raw.ImageHostRewrites))
		for from, to := range raw.ImageHostRewrites {
			from, to = strings.TrimSpace(from), strings.TrimSpace(to)
			if from == "" || to == "" {
				continue
			}
			rewrites[from] = to
		}
		cfg.ImageHostRewrites = rewrites
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Normalizer builds the image URL normalizer described by the config.
func (c Config) Normalizer() imageurl.Normalizer {
	return imageurl.Normalizer{SecurePage: c.SecureImages, HostRewrites: c.ImageHostRewrites}
}

// LogDir is the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		cfg.APIURL = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
