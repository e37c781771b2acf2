package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version int            `toml:"version"`
	Browser BrowserConfig  `toml:"browser"`
	LLM     LLMConfig      `toml:"llm"`
	Content ContentConfig  `toml:"content"`
	Posting PostingConfig  `toml:"posting"`
	Engage  EngageConfig   `toml:"engage"`
	Plans   map[string]Plan `toml:"plans"`
	Email   EmailConfig    `toml:"email"`
}

type BrowserConfig struct {
	Headless bool `toml:"headless"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BatchSize      int    `toml:"batch_size"`
	BatchDelaySecs int    `toml:"batch_delay_secs"`
}

type ContentConfig struct {
	MaxAttempts         int `toml:"max_attempts"`
	GenerationDelaySecs int `toml:"generation_delay_secs"`
}

type PostingConfig struct {
	PostDelaySecs int `toml:"post_delay_secs"`
	LeadSecs      int `toml:"lead_secs"` // offset of the first auto-tweet slot
}

type EngageConfig struct {
	ToleranceSecs     int      `toml:"tolerance_secs"`
	BlockCooldownMins int      `toml:"block_cooldown_mins"`
	CategoryBlacklist []string `toml:"category_blacklist"`
	KeywordBlacklist  []string `toml:"keyword_blacklist"`
}

// Plan defines monthly limits for a billing plan.
type Plan struct {
	MonthlyReplies     int `toml:"monthly_replies"`
	MonthlyGenerations int `toml:"monthly_generations"`
}

type EmailConfig struct {
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
}

// Provider names for LLMConfig.Provider
const ProviderAnthropic = "anthropic"

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Browser: BrowserConfig{
			Headless: true,
		},
		LLM: LLMConfig{
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet-4-20250514",
			BatchSize:      5,
			BatchDelaySecs: 2,
		},
		Content: ContentConfig{
			MaxAttempts:         3,
			GenerationDelaySecs: 1,
		},
		Posting: PostingConfig{
			PostDelaySecs: 5,
			LeadSecs:      5,
		},
		Engage: EngageConfig{
			ToleranceSecs:     5,
			BlockCooldownMins: 30,
			CategoryBlacklist: []string{"spam", "crypto", "offensive"},
			KeywordBlacklist:  []string{"giveaway", "airdrop", "follow back"},
		},
		Plans: map[string]Plan{
			"free": {MonthlyReplies: 10, MonthlyGenerations: 50},
			"pro":  {MonthlyReplies: 300, MonthlyGenerations: 1500},
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
	}
}

// BatchDelay returns the delay between quality-filter batch calls.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.LLM.BatchDelaySecs) * time.Second
}

// GenerationDelay returns the delay between successive generations.
func (c *Config) GenerationDelay() time.Duration {
	return time.Duration(c.Content.GenerationDelaySecs) * time.Second
}

// PostDelay returns the delay between successive posts.
func (c *Config) PostDelay() time.Duration {
	return time.Duration(c.Posting.PostDelaySecs) * time.Second
}

// Lead returns the offset of the first auto-tweet slot from the trigger.
func (c *Config) Lead() time.Duration {
	return time.Duration(c.Posting.LeadSecs) * time.Second
}

// Tolerance returns the due-check tolerance window.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.Engage.ToleranceSecs) * time.Second
}

// BlockCooldown returns the extended cooldown applied on a provider soft-block.
func (c *Config) BlockCooldown() time.Duration {
	return time.Duration(c.Engage.BlockCooldownMins) * time.Minute
}

// PlanFor returns the limits for a plan name, falling back to "free".
func (c *Config) PlanFor(name string) Plan {
	if p, ok := c.Plans[name]; ok {
		return p
	}
	return c.Plans["free"]
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "postpilot"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "postpilot"), nil
}

// DataDir returns the directory holding the sqlite database
func DataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// DatabasePath returns the full path to the sqlite database
func DatabasePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "postpilot.db"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
