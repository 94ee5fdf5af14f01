package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Seoul"

	configPathEnv     = "AUTOBLOG_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	openAIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	newsAPIKeyEnv     = "NEWS_API_KEY"
	gitUserNameEnv    = "GIT_USER_NAME"
	gitUserEmailEnv   = "GIT_USER_EMAIL"
	gitRepoPathEnv    = "GIT_REPO_PATH"
	gitTokenEnv       = "GIT_TOKEN"
	gitCommitTmplEnv  = "GIT_COMMIT_TEMPLATE"
	timezoneEnv       = "TIMEZONE"
	postsPerRunEnv    = "POSTS_PER_RUN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	natsURLEnv        = "NATS_URL"
	logLevelEnv       = "LOG_LEVEL"
	logFileEnv        = "LOG_FILE_PATH"
	otlpEndpointEnv   = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Validation failures returned by Config.Validate.
var (
	ErrMissingAPIKey      = errors.New("missing OPENAI_API_KEY")
	ErrMissingRepoPath    = errors.New("missing git repository path")
	ErrInvalidPostsPerRun = errors.New("posts per run must be at least 1")
	ErrInvalidThreshold   = errors.New("dedup thresholds must be within (0, 1]")
	ErrInvalidInterval    = errors.New("scheduler interval must be positive")
)

// Config holds high-level settings required across the application.
type Config struct {
	Site          SiteConfig         `yaml:"site"`
	Git           GitConfig          `yaml:"git"`
	LLM           LLMConfig          `yaml:"llm"`
	Research      ResearchConfig     `yaml:"research"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Events        EventsConfig       `yaml:"events"`
	Logging       LoggingConfig      `yaml:"logging"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// SiteConfig describes the Jekyll site the pipeline writes into.
type SiteConfig struct {
	Timezone        string         `yaml:"timezone"`
	PostsDir        string         `yaml:"postsDir"`
	TopicsFile      string         `yaml:"topicsFile"`
	PromptsDir      string         `yaml:"promptsDir"`
	PostsPerRun     int            `yaml:"postsPerRun"`
	Author          string         `yaml:"author"`
	DynamicCategory string         `yaml:"dynamicCategory"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the site timezone string to a time.Location.
func (s SiteConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	if loc, err := time.LoadLocation(defaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// GitConfig configures commits into the site repository.
type GitConfig struct {
	RepoPath       string `yaml:"repoPath"`
	Remote         string `yaml:"remote"`
	AuthorName     string `yaml:"authorName"`
	AuthorEmail    string `yaml:"authorEmail"`
	Username       string `yaml:"username"`
	Token          string `yaml:"token"`
	Push           *bool  `yaml:"push"`
	CommitTemplate string `yaml:"commitTemplate"`
}

// PushEnabled reports whether commits should be pushed. Defaults to true.
func (g GitConfig) PushEnabled() bool {
	return g.Push == nil || *g.Push
}

// LLMConfig defines how to contact the chat-completions API.
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	MaxTokens    int           `yaml:"maxTokens"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ResearchConfig points at Wikipedia and NewsAPI.
type ResearchConfig struct {
	WikipediaURL string        `yaml:"wikipediaUrl"`
	NewsAPIURL   string        `yaml:"newsApiUrl"`
	NewsAPIKey   string        `yaml:"newsApiKey"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
}

// DedupConfig holds the duplicate gates.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	KeywordThreshold    float64 `yaml:"keywordThreshold"`
}

// DatabaseConfig describes the optional Postgres run history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines how often the schedule command runs the pipeline.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Mode     string        `yaml:"mode"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EventsConfig enables post-published events on NATS.
type EventsConfig struct {
	NatsURL string `yaml:"natsUrl"`
	Subject string `yaml:"subject"`
}

// LoggingConfig controls the slog handler and the optional rotating file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
	Insecure    bool   `yaml:"insecure"`
}

// SourceConfig describes a single idea source with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	Channels []ChannelConfig   `yaml:"channels"`
	Options  map[string]string `yaml:"options"`
}

// ChannelConfig is one concrete endpoint of a source (a feed URL, an arXiv
// listing).
type ChannelConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads .env, the YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate checks the settings a run needs. dryRun relaxes the git
// requirement since nothing is committed.
func (c Config) Validate(dryRun bool) error {
	var errs []error
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if !dryRun && strings.TrimSpace(c.Git.RepoPath) == "" {
		errs = append(errs, ErrMissingRepoPath)
	}
	if c.Site.PostsPerRun < 1 {
		errs = append(errs, ErrInvalidPostsPerRun)
	}
	if !inUnitRange(c.Dedup.SimilarityThreshold) || !inUnitRange(c.Dedup.KeywordThreshold) {
		errs = append(errs, ErrInvalidThreshold)
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, ErrInvalidInterval)
	}
	return errors.Join(errs...)
}

func inUnitRange(v float64) bool { return v > 0 && v <= 1 }

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.LLM.APIKey, openAIKeyEnv)
	setString(&c.LLM.Model, openAIModelEnv)
	setString(&c.Research.NewsAPIKey, newsAPIKeyEnv)
	setString(&c.Git.AuthorName, gitUserNameEnv)
	setString(&c.Git.AuthorEmail, gitUserEmailEnv)
	setString(&c.Git.RepoPath, gitRepoPathEnv)
	setString(&c.Git.Token, gitTokenEnv)
	setString(&c.Git.CommitTemplate, gitCommitTmplEnv)
	setString(&c.Site.Timezone, timezoneEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.Events.NatsURL, natsURLEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.File, logFileEnv)
	setString(&c.Telemetry.Endpoint, otlpEndpointEnv)

	if v := os.Getenv(postsPerRunEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Site.PostsPerRun = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", postsPerRunEnv, v, err)
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Site.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		tz = defaultTimezone
		if loc, err = time.LoadLocation(tz); err != nil {
			loc = time.UTC
		}
	}
	c.Site.Timezone = tz
	c.Site.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Site.Timezone, override.Site.Timezone)
	mergeString(&base.Site.PostsDir, override.Site.PostsDir)
	mergeString(&base.Site.TopicsFile, override.Site.TopicsFile)
	mergeString(&base.Site.PromptsDir, override.Site.PromptsDir)
	mergeString(&base.Site.Author, override.Site.Author)
	mergeString(&base.Site.DynamicCategory, override.Site.DynamicCategory)
	if override.Site.PostsPerRun != 0 {
		base.Site.PostsPerRun = override.Site.PostsPerRun
	}

	mergeString(&base.Git.RepoPath, override.Git.RepoPath)
	mergeString(&base.Git.Remote, override.Git.Remote)
	mergeString(&base.Git.AuthorName, override.Git.AuthorName)
	mergeString(&base.Git.AuthorEmail, override.Git.AuthorEmail)
	mergeString(&base.Git.Username, override.Git.Username)
	mergeString(&base.Git.Token, override.Git.Token)
	mergeString(&base.Git.CommitTemplate, override.Git.CommitTemplate)
	if override.Git.Push != nil {
		base.Git.Push = override.Git.Push
	}

	mergeString(&base.LLM.Endpoint, override.LLM.Endpoint)
	mergeString(&base.LLM.Model, override.LLM.Model)
	mergeString(&base.LLM.APIKey, override.LLM.APIKey)
	mergeString(&base.LLM.SystemPrompt, override.LLM.SystemPrompt)
	if override.LLM.MaxTokens != 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.Temperature != 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}
	if override.LLM.Timeout != 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	mergeString(&base.Research.WikipediaURL, override.Research.WikipediaURL)
	mergeString(&base.Research.NewsAPIURL, override.Research.NewsAPIURL)
	mergeString(&base.Research.NewsAPIKey, override.Research.NewsAPIKey)
	if override.Research.CacheTTL != 0 {
		base.Research.CacheTTL = override.Research.CacheTTL
	}

	if override.Dedup.SimilarityThreshold != 0 {
		base.Dedup.SimilarityThreshold = override.Dedup.SimilarityThreshold
	}
	if override.Dedup.KeywordThreshold != 0 {
		base.Dedup.KeywordThreshold = override.Dedup.KeywordThreshold
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	mergeString(&base.Scheduler.Mode, override.Scheduler.Mode)

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	mergeString(&base.Events.NatsURL, override.Events.NatsURL)
	mergeString(&base.Events.Subject, override.Events.Subject)

	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)
	mergeString(&base.Logging.File, override.Logging.File)
	if override.Logging.MaxSizeMB != 0 {
		base.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups != 0 {
		base.Logging.MaxBackups = override.Logging.MaxBackups
	}
	if override.Logging.MaxAgeDays != 0 {
		base.Logging.MaxAgeDays = override.Logging.MaxAgeDays
	}

	mergeString(&base.Telemetry.Endpoint, override.Telemetry.Endpoint)
	mergeString(&base.Telemetry.ServiceName, override.Telemetry.ServiceName)
	if override.Telemetry.Insecure {
		base.Telemetry.Insecure = true
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Timezone:        defaultTimezone,
			PostsDir:        "site/_posts",
			TopicsFile:      "topics/topics.yml",
			PromptsDir:      "prompts",
			PostsPerRun:     1,
			Author:          "AutoBot",
			DynamicCategory: "AI_Trends",
		},
		Git: GitConfig{
			Remote:         "origin",
			AuthorName:     "AutoBot",
			AuthorEmail:    "bot@example.com",
			CommitTemplate: "feat: publish new blog post - {title}",
		},
		LLM: LLMConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-3.5-turbo",
			SystemPrompt: "You are a professional blog writer. You write high-quality, informative and practical content.",
			MaxTokens:    2000,
			Temperature:  0.7,
			Timeout:      60 * time.Second,
		},
		Research: ResearchConfig{
			WikipediaURL: "https://en.wikipedia.org/w/api.php",
			NewsAPIURL:   "https://newsapi.org/v2/everything",
			CacheTTL:     6 * time.Hour,
		},
		Dedup: DedupConfig{
			SimilarityThreshold: 0.7,
			KeywordThreshold:    0.6,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Mode: "dynamic"},
		Events:    EventsConfig{Subject: "autoblog.post.published"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Telemetry: TelemetryConfig{ServiceName: "autoblog"},
		Sources: []SourceConfig{
			{
				Name:    "tech-feeds",
				Scanner: "rss",
				Channels: []ChannelConfig{
					{Name: "oreilly-radar", URL: "https://feeds.feedburner.com/oreilly/radar"},
					{Name: "wired", URL: "https://www.wired.com/feed/rss"},
					{Name: "techcrunch", URL: "https://techcrunch.com/feed/"},
					{Name: "the-verge", URL: "https://www.theverge.com/rss/index.xml"},
					{Name: "ars-technica", URL: "https://feeds.arstechnica.com/arstechnica/index"},
					{Name: "engadget", URL: "https://www.engadget.com/rss.xml"},
				},
			},
			{Name: "evergreen", Scanner: "fallback", Options: map[string]string{"sample": "3"}},
		},
	}
}
