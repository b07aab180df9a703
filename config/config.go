package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Fund is one configured ETF.
type Fund struct {
	Code          string `yaml:"code" json:"code"`
	Name          string `yaml:"name" json:"name"`
	SectorKeyword string `yaml:"sector_keyword" json:"sector_keyword"`
}

// Config holds the full runtime configuration. The funds file supplies the
// watch list and amounts; environment variables supply credentials.
type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// Position sizing
	BaseInvestAmount int `yaml:"base_invest_amount" json:"base_invest_amount"`
	MaxDailyInvest   int `yaml:"max_daily_invest" json:"max_daily_invest"`

	// Strategy thresholds
	RSIBuyThreshold  float64 `yaml:"rsi_buy_threshold" json:"rsi_buy_threshold"`
	RSISellThreshold float64 `yaml:"rsi_sell_threshold" json:"rsi_sell_threshold"`

	// Batch pacing
	CooldownSeconds int  `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	CooldownAlways  bool `yaml:"cooldown_always" json:"cooldown_always"`

	// Daily schedule, cron syntax (robfig/cron)
	ScheduleCron string `yaml:"schedule_cron" json:"schedule_cron"`

	Funds []Fund `yaml:"funds" json:"funds"`

	// LLM analyst; empty APIKey disables the analyst entirely
	LLMProvider string `json:"llm_provider"`
	LLMAPIKey   string `json:"-"`
	LLMBaseURL  string `json:"llm_base_url"`
	LLMModel    string `json:"llm_model"`

	// Mail delivery
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
	MailUser string `json:"-"`
	MailPass string `json:"-"`
	MailTo   string `yaml:"mail_to" json:"mail_to"`

	// Optional Longport realtime quotes
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`

	CacheEnabled bool `yaml:"cache_enabled" json:"cache_enabled"`
	Debug        bool `json:"debug"`

	// Eino debug visualizer
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

// DefaultConfig builds a config from defaults plus environment overrides.
// A .env file in the working directory is honored when present.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		BaseInvestAmount: 1000,
		MaxDailyInvest:   3000,
		RSIBuyThreshold:  35,
		RSISellThreshold: 70,
		CooldownSeconds:  15,
		ScheduleCron:     "30 17 * * 1-5",

		LLMProvider: "openai",
		LLMBaseURL:  "https://api.deepseek.com/v1",
		LLMModel:    "deepseek-chat",

		SMTPHost: "smtp.163.com",
		SMTPPort: 465,

		CacheEnabled:     true,
		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

// Load reads the funds file into a default config. The file path may be
// empty, in which case config.yaml under the project dir is tried.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = filepath.Join(cfg.ProjectDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DataCacheDir = filepath.Join(val, "cache")
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	c.LLMAPIKey = os.Getenv("LLM_API_KEY")
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}

	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTPHost = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.SMTPPort = port
		}
	}
	c.MailUser = os.Getenv("MAIL_USER")
	c.MailPass = os.Getenv("MAIL_PASS")

	c.LongportAppKey = os.Getenv("LONGPORT_APP_KEY")
	c.LongportAppSecret = os.Getenv("LONGPORT_APP_SECRET")
	c.LongportAccessToken = os.Getenv("LONGPORT_ACCESS_TOKEN")

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			c.Debug = debug
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
}

// AnalystEnabled reports whether the LLM analyst should run.
func (c *Config) AnalystEnabled() bool {
	return c.LLMAPIKey != ""
}

// MailEnabled reports whether the report can be delivered by email.
func (c *Config) MailEnabled() bool {
	return c.MailUser != "" && c.MailPass != "" && c.MailTo != ""
}

// LongportEnabled reports whether realtime quote enrichment is configured.
func (c *Config) LongportEnabled() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

// Validate checks the parts of the config that are fatal when wrong.
// Everything here aborts the run before the first fund is processed.
func (c *Config) Validate() error {
	if len(c.Funds) == 0 {
		return fmt.Errorf("config: funds list is empty")
	}
	for i, fund := range c.Funds {
		code := strings.TrimSpace(fund.Code)
		if code == "" {
			return fmt.Errorf("config: funds[%d] has no code", i)
		}
		if len(code) != 6 {
			return fmt.Errorf("config: funds[%d] code %q is not a six-digit code", i, code)
		}
		if _, err := strconv.Atoi(code); err != nil {
			return fmt.Errorf("config: funds[%d] code %q is not numeric", i, code)
		}
	}
	if c.BaseInvestAmount <= 0 {
		return fmt.Errorf("config: base_invest_amount must be positive, got %d", c.BaseInvestAmount)
	}
	if c.MaxDailyInvest < c.BaseInvestAmount {
		return fmt.Errorf("config: max_daily_invest %d is below base_invest_amount %d",
			c.MaxDailyInvest, c.BaseInvestAmount)
	}
	if c.RSIBuyThreshold <= 0 || c.RSIBuyThreshold >= c.RSISellThreshold {
		return fmt.Errorf("config: rsi thresholds out of order (buy=%v sell=%v)",
			c.RSIBuyThreshold, c.RSISellThreshold)
	}
	return nil
}

// EnsureDirectories creates the data directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.DataCacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
