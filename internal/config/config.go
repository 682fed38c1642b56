package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. Structural settings
// come from the YAML file; credentials and deploy-specific values come
// from the environment and override the file.
type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		Host    string `yaml:"host"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Redis struct {
		URL        string `yaml:"url"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"redis"`

	Transcript struct {
		MinChars       int  `yaml:"min_chars"`
		BrowserFetch   bool `yaml:"browser_fetch"`
		RetryDelaySecs int  `yaml:"retry_delay_seconds"`
	} `yaml:"transcript"`

	YtDlp struct {
		Path    string `yaml:"path"`
		WorkDir string `yaml:"work_dir"`
	} `yaml:"ytdlp"`

	Providers struct {
		CobaltURL        string `yaml:"cobalt_url"`
		RapidAPIHost     string `yaml:"rapidapi_host"`
		Y2mateURL        string `yaml:"y2mate_url"`
		TimeoutSeconds   int    `yaml:"timeout_seconds"`
		PollMaxAttempts  int    `yaml:"poll_max_attempts"`
		PollDelaySeconds int    `yaml:"poll_delay_seconds"`
	} `yaml:"providers"`

	Pipeline struct {
		DefaultLanguage string `yaml:"default_language"`
	} `yaml:"pipeline"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Storage struct {
		Database string `yaml:"database"`
	} `yaml:"storage"`

	// Secrets, environment only
	YouTubeAPIKey  string `yaml:"-"`
	OpenAIAPIKey   string `yaml:"-"`
	MakeWebhookURL string `yaml:"-"`
	RapidAPIKey    string `yaml:"-"`
}

// Load reads the YAML file, then applies environment overrides. A .env
// file is honored when present so local development matches production.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.MakeWebhookURL = os.Getenv("MAKE_WEBHOOK_URL")
	cfg.RapidAPIKey = os.Getenv("RAPIDAPI_KEY")

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379"
	}
	if c.Redis.TTLMinutes == 0 {
		c.Redis.TTLMinutes = 60
	}
	if c.Transcript.MinChars == 0 {
		c.Transcript.MinChars = 50
	}
	if c.Transcript.RetryDelaySecs == 0 {
		c.Transcript.RetryDelaySecs = 2
	}
	if c.YtDlp.Path == "" {
		c.YtDlp.Path = "yt-dlp"
	}
	if c.YtDlp.WorkDir == "" {
		c.YtDlp.WorkDir = os.TempDir()
	}
	if c.Providers.CobaltURL == "" {
		c.Providers.CobaltURL = "https://api.cobalt.tools/"
	}
	if c.Providers.RapidAPIHost == "" {
		c.Providers.RapidAPIHost = "youtube-mp36.p.rapidapi.com"
	}
	if c.Providers.Y2mateURL == "" {
		c.Providers.Y2mateURL = "https://www.y2mate.com"
	}
	if c.Providers.TimeoutSeconds == 0 {
		c.Providers.TimeoutSeconds = 120
	}
	if c.Providers.PollMaxAttempts == 0 {
		c.Providers.PollMaxAttempts = 30
	}
	if c.Providers.PollDelaySeconds == 0 {
		c.Providers.PollDelaySeconds = 1
	}
	if c.Pipeline.DefaultLanguage == "" {
		c.Pipeline.DefaultLanguage = "en"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 2
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/jobs.db"
	}
}
