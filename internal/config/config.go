package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("config: invalid configuration")

const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"

	ExtractorReader      = "reader"
	ExtractorReadability = "readability"
)

type Config struct {
	LLM             LLMConfig        `yaml:"llm"`
	Content         ContentConfig    `yaml:"content"`
	Summarizer      SummarizerConfig `yaml:"summarizer"`
	Timezone        string           `yaml:"timezone"`
	TimeWindowHours int              `yaml:"time_window_hours"`
	OPMLPath        string           `yaml:"opml_path"`
	ArchivesDir     string           `yaml:"archives_dir"`
	ReadmePath      string           `yaml:"readme_path"`
	Schedule        string           `yaml:"schedule"`
	RunOnStart      bool             `yaml:"run_on_start"`
	RunTimeout      time.Duration    `yaml:"run_timeout"`
	Web             WebConfig        `yaml:"web"`
	Log             LogConfig        `yaml:"log"`
	Lark            LarkConfig       `yaml:"lark"`

	location *time.Location
}

type LLMConfig struct {
	Provider         string         `yaml:"provider"`
	MaxContentLength int            `yaml:"max_content_length"`
	Gemini           GeminiConfig   `yaml:"gemini"`
	DeepSeek         DeepSeekConfig `yaml:"deepseek"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DeepSeekConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ContentConfig struct {
	Extractor     string        `yaml:"extractor"`
	ReaderBaseURL string        `yaml:"reader_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

type SummarizerConfig struct {
	DelaySeconds float64 `yaml:"delay_seconds"`
	Workers      int     `yaml:"workers"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LarkConfig holds Bitable sync settings. Sync is skipped when AppToken or
// TableID is empty.
type LarkConfig struct {
	Host      string `yaml:"host"`
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
	AppToken  string `yaml:"app_token"`
	TableID   string `yaml:"table_id"`
	BatchSize int    `yaml:"batch_size"`
}

// Location returns the configured timezone. Only valid after Load.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}

// Delay is the pause imposed after each successful LLM call.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Summarizer.DelaySeconds * float64(time.Second))
}

func (c *Config) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowHours) * time.Hour
}

func (c *Config) SyncEnabled() bool {
	return c.Lark.AppToken != "" && c.Lark.TableID != ""
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func defaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:         ProviderGemini,
			MaxContentLength: 15000,
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
				Timeout: 120 * time.Second,
			},
			DeepSeek: DeepSeekConfig{
				Model:       "deepseek-chat",
				BaseURL:     "https://api.deepseek.com/v1",
				Temperature: 0.7,
				MaxTokens:   1000,
				Timeout:     120 * time.Second,
			},
		},
		Content: ContentConfig{
			Extractor:     ExtractorReader,
			ReaderBaseURL: "https://r.jina.ai",
			Timeout:       30 * time.Second,
		},
		Summarizer: SummarizerConfig{
			DelaySeconds: 2.0,
			Workers:      1,
		},
		Timezone:        "Asia/Singapore",
		TimeWindowHours: 24,
		OPMLPath:        "feeds.opml",
		ArchivesDir:     "archives",
		ReadmePath:      "README.md",
		Schedule:        "0 7 * * *",
		Web:             WebConfig{Addr: ":8080"},
		Log:             LogConfig{Level: "info"},
		Lark: LarkConfig{
			Host:      "https://open.feishu.cn",
			BatchSize: 500,
		},
	}
}

// applyEnv overlays environment variables on top of file values. Unparseable
// numbers are reported rather than silently ignored.
func (c *Config) applyEnv() error {
	var errs []error

	envString(&c.LLM.Provider, "LLM_PROVIDER")
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	envString(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	envString(&c.LLM.Gemini.Model, "GEMINI_MODEL")
	envString(&c.LLM.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	envString(&c.LLM.DeepSeek.Model, "DEEPSEEK_MODEL")
	envString(&c.LLM.DeepSeek.BaseURL, "DEEPSEEK_BASE_URL")
	errs = append(errs, envInt(&c.LLM.MaxContentLength, "MAX_CONTENT_LENGTH"))

	envString(&c.Timezone, "TZ")
	errs = append(errs, envInt(&c.TimeWindowHours, "TIME_WINDOW_HOURS"))
	errs = append(errs, envFloat(&c.Summarizer.DelaySeconds, "API_DELAY_SECONDS"))
	errs = append(errs, envInt(&c.Summarizer.Workers, "SUMMARY_WORKERS"))

	envString(&c.OPMLPath, "OPML_PATH")
	envString(&c.ArchivesDir, "ARCHIVES_DIR")
	envString(&c.ReadmePath, "README_PATH")

	envString(&c.Content.ReaderBaseURL, "READER_BASE_URL")
	envString(&c.Content.Extractor, "CONTENT_EXTRACTOR")
	c.Content.Extractor = strings.ToLower(strings.TrimSpace(c.Content.Extractor))

	envString(&c.Schedule, "SCHEDULE")
	errs = append(errs, envDuration(&c.RunTimeout, "RUN_TIMEOUT"))
	envString(&c.Web.Addr, "WEB_ADDR")
	envString(&c.Log.Level, "LOG_LEVEL")
	envString(&c.Log.File, "LOG_FILE")

	envString(&c.Lark.Host, "LARK_HOST")
	envString(&c.Lark.AppID, "LARK_APP_ID")
	envString(&c.Lark.AppSecret, "LARK_APP_SECRET")
	envString(&c.Lark.AppToken, "LARK_APP_TOKEN")
	envString(&c.Lark.TableID, "LARK_TABLE_ID")

	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s must be a number, got %q", key, v)
	}
	*dst = f
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a duration such as 30m, got %q", key, v)
	}
	*dst = d
	return nil
}

func validate(cfg *Config) error {
	var problems []error

	switch cfg.LLM.Provider {
	case ProviderGemini:
		if cfg.LLM.Gemini.APIKey == "" {
			problems = append(problems, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER is 'gemini'"))
		}
	case ProviderDeepSeek:
		if cfg.LLM.DeepSeek.APIKey == "" {
			problems = append(problems, errors.New("DEEPSEEK_API_KEY is required when LLM_PROVIDER is 'deepseek'"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported LLM_PROVIDER %q (supported: gemini, deepseek)", cfg.LLM.Provider))
	}

	if cfg.TimeWindowHours < 1 {
		problems = append(problems, errors.New("TIME_WINDOW_HOURS must be at least 1"))
	}
	if cfg.LLM.MaxContentLength < 1 {
		problems = append(problems, errors.New("MAX_CONTENT_LENGTH must be at least 1"))
	}
	if cfg.Summarizer.DelaySeconds < 0 {
		problems = append(problems, errors.New("API_DELAY_SECONDS must not be negative"))
	}
	if cfg.Summarizer.Workers < 1 {
		problems = append(problems, errors.New("SUMMARY_WORKERS must be at least 1"))
	}
	if cfg.Summarizer.Workers > 1 && cfg.Summarizer.DelaySeconds == 0 {
		problems = append(problems, errors.New("SUMMARY_WORKERS above 1 requires API_DELAY_SECONDS greater than 0"))
	}
	if cfg.RunTimeout < 0 {
		problems = append(problems, errors.New("RUN_TIMEOUT must not be negative"))
	}
	if cfg.OPMLPath == "" {
		problems = append(problems, errors.New("OPML_PATH is required"))
	}
	if cfg.ArchivesDir == "" {
		problems = append(problems, errors.New("ARCHIVES_DIR is required"))
	}

	switch cfg.Content.Extractor {
	case ExtractorReader:
		if cfg.Content.ReaderBaseURL == "" {
			problems = append(problems, errors.New("READER_BASE_URL is required for the reader extractor"))
		}
	case ExtractorReadability:
	default:
		problems = append(problems, fmt.Errorf("unsupported CONTENT_EXTRACTOR %q (supported: reader, readability)", cfg.Content.Extractor))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		problems = append(problems, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err))
	} else {
		cfg.location = loc
	}

	if cfg.SyncEnabled() {
		if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
			problems = append(problems, errors.New("LARK_APP_ID and LARK_APP_SECRET are required when Lark sync is configured"))
		}
		if cfg.Lark.BatchSize < 1 || cfg.Lark.BatchSize > 500 {
			problems = append(problems, errors.New("lark.batch_size must be between 1 and 500"))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order, and validates the result. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
