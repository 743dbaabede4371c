package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig holds the planner, publisher and job runner tunables.
type SchedulerConfig struct {
	HorizonDays         int      `yaml:"horizon_days"`
	MinPostsPerDay      float64  `yaml:"min_posts_per_day"`
	MaxPostsPerDay      float64  `yaml:"max_posts_per_day"`
	ShortFormMaxSeconds float64  `yaml:"short_form_max_seconds"`
	LongFormMinSeconds  float64  `yaml:"long_form_min_seconds"`
	ShortFormHours      []int    `yaml:"short_form_hours"`
	LongFormHours       []int    `yaml:"long_form_hours"`
	Platforms           []string `yaml:"platforms"`
	LongFormPlatforms   []string `yaml:"long_form_platforms"`
	Timezone            string   `yaml:"timezone"`

	MaxRetries         int     `yaml:"max_retries"`
	PublishConcurrency int     `yaml:"publish_concurrency"`
	PlatformRatePerSec float64 `yaml:"platform_rate_per_sec"`
	DueBatchSize       int     `yaml:"due_batch_size"`
	DuePollSpec        string  `yaml:"due_poll_spec"`
	ReplanSpec         string  `yaml:"replan_spec"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		HorizonDays:         60,
		MinPostsPerDay:      1.0,
		MaxPostsPerDay:      3.0,
		ShortFormMaxSeconds: 60,
		LongFormMinSeconds:  180,
		ShortFormHours:      []int{18, 20, 12},
		LongFormHours:       []int{10, 14, 16},
		Platforms:           []string{"tiktok", "instagram", "youtube"},
		LongFormPlatforms:   []string{"youtube"},
		Timezone:            "UTC",
		MaxRetries:          3,
		PublishConcurrency:  10,
		PlatformRatePerSec:  1,
		DueBatchSize:        100,
		DuePollSpec:         "@every 00h01m00s",
		ReplanSpec:          "@every 06h00m00s",
	}
}

func loadSchedulerFromEnv() SchedulerConfig {
	d := DefaultSchedulerConfig()
	return SchedulerConfig{
		HorizonDays:         getEnvInt("SCHEDULE_HORIZON_DAYS", d.HorizonDays),
		MinPostsPerDay:      getEnvFloat("SCHEDULE_MIN_PER_DAY", d.MinPostsPerDay),
		MaxPostsPerDay:      getEnvFloat("SCHEDULE_MAX_PER_DAY", d.MaxPostsPerDay),
		ShortFormMaxSeconds: getEnvFloat("SHORT_FORM_MAX_SECONDS", d.ShortFormMaxSeconds),
		LongFormMinSeconds:  getEnvFloat("LONG_FORM_MIN_SECONDS", d.LongFormMinSeconds),
		ShortFormHours:      getEnvIntList("SHORT_FORM_HOURS", d.ShortFormHours),
		LongFormHours:       getEnvIntList("LONG_FORM_HOURS", d.LongFormHours),
		Platforms:           getEnvList("PLATFORMS", d.Platforms),
		LongFormPlatforms:   getEnvList("LONG_FORM_PLATFORMS", d.LongFormPlatforms),
		Timezone:            getEnv("SCHEDULE_TIMEZONE", d.Timezone),
		MaxRetries:          getEnvInt("PUBLISH_MAX_RETRIES", d.MaxRetries),
		PublishConcurrency:  getEnvInt("PUBLISH_CONCURRENCY", d.PublishConcurrency),
		PlatformRatePerSec:  getEnvFloat("PLATFORM_RATE_PER_SEC", d.PlatformRatePerSec),
		DueBatchSize:        getEnvInt("DUE_BATCH_SIZE", d.DueBatchSize),
		DuePollSpec:         getEnv("DUE_POLL_SPEC", d.DuePollSpec),
		ReplanSpec:          getEnv("REPLAN_SPEC", d.ReplanSpec),
	}
}

// LoadSchedulerFile overlays the YAML file at path onto base. Keys missing
// from the file keep the value from base.
func LoadSchedulerFile(path string, base SchedulerConfig) (SchedulerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading scheduler config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parsing scheduler config %s: %w", path, err)
	}
	return cfg, nil
}

func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c SchedulerConfig) Validate() error {
	if c.HorizonDays <= 0 {
		return errors.New("horizon_days must be positive")
	}
	if c.MinPostsPerDay <= 0 || c.MaxPostsPerDay <= 0 {
		return errors.New("posts per day bounds must be positive")
	}
	if c.MinPostsPerDay > c.MaxPostsPerDay {
		return fmt.Errorf("min_posts_per_day %.2f exceeds max_posts_per_day %.2f", c.MinPostsPerDay, c.MaxPostsPerDay)
	}
	if len(c.Platforms) == 0 {
		return errors.New("at least one platform is required")
	}
	if len(c.ShortFormHours) == 0 || len(c.LongFormHours) == 0 {
		return errors.New("preferred hour lists cannot be empty")
	}
	for _, h := range append(append([]int{}, c.ShortFormHours...), c.LongFormHours...) {
		if h < 0 || h > 23 {
			return fmt.Errorf("preferred hour %d out of range", h)
		}
	}
	if c.MaxRetries <= 0 {
		return errors.New("max_retries must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
