package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/polzovatel/web-agent-ai/internal/llm"
)

// Environment variables holding credentials. They are never read from
// config files.
const (
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvAzureKey        = "AZURE_OPENAI_API_KEY"
	EnvAzureBase       = "AZURE_OPENAI_API_BASE"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
	EnvAzureDeployment = "DEPLOYMENT_GPT_NAME"

	envPrefix = "WEBAGENT"
)

// RequiredSecrets is checked in this order at startup.
var RequiredSecrets = []string{
	EnvAnthropicKey,
	EnvAzureKey,
	EnvAzureBase,
	EnvAzureAPIVersion,
	EnvAzureDeployment,
}

// MissingError lists every required variable that was unset.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Names, ", ")
}

type Config struct {
	Model     string          `mapstructure:"model"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	ActionLog ActionLogConfig `mapstructure:"action_log"`
	Log       LogConfig       `mapstructure:"log"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`

	Secrets Secrets `mapstructure:"-"`
}

type ChunkingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	MaxSize int  `mapstructure:"max_size"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	Install        bool          `mapstructure:"install"`
	Timeout        time.Duration `mapstructure:"timeout"`
	NavigateSettle time.Duration `mapstructure:"navigate_settle"`
	ActionSettle   time.Duration `mapstructure:"action_settle"`
	Screenshot     string        `mapstructure:"screenshot"`
}

type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ProgressConfig struct {
	Capacity     int           `mapstructure:"capacity"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ActionLogConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type AnthropicConfig struct {
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type Secrets struct {
	AnthropicKey    string
	AzureKey        string
	AzureBase       string
	AzureAPIVersion string
	AzureDeployment string
}

// SetDefaults registers every recognised key with its default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model", string(llm.ModelClaude))

	v.SetDefault("chunking.enabled", true)
	v.SetDefault("chunking.max_size", 100000)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.install", false)
	v.SetDefault("browser.timeout", "60s")
	v.SetDefault("browser.navigate_settle", "2s")
	v.SetDefault("browser.action_settle", "1s")
	v.SetDefault("browser.screenshot", "screenshot.png")

	v.SetDefault("fetch.timeout", "60s")

	v.SetDefault("progress.capacity", 256)
	v.SetDefault("progress.poll_interval", "100ms")

	v.SetDefault("action_log.path", "actions_log.txt")

	v.SetDefault("log.file", "web_agent.log")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("anthropic.max_tokens", 5000)
}

// New returns a viper instance with defaults and WEBAGENT_* environment
// overrides wired up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv reads a .env file if present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from v and the process environment.
func Load(v *viper.Viper) (*Config, error) {
	return load(v, os.Getenv)
}

func load(v *viper.Viper, getenv func(string) string) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Secrets = Secrets{
		AnthropicKey:    strings.TrimSpace(getenv(EnvAnthropicKey)),
		AzureKey:        strings.TrimSpace(getenv(EnvAzureKey)),
		AzureBase:       strings.TrimSpace(getenv(EnvAzureBase)),
		AzureAPIVersion: strings.TrimSpace(getenv(EnvAzureAPIVersion)),
		AzureDeployment: strings.TrimSpace(getenv(EnvAzureDeployment)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports all missing secrets at once, then checks value ranges.
func (c *Config) Validate() error {
	values := map[string]string{
		EnvAnthropicKey:    c.Secrets.AnthropicKey,
		EnvAzureKey:        c.Secrets.AzureKey,
		EnvAzureBase:       c.Secrets.AzureBase,
		EnvAzureAPIVersion: c.Secrets.AzureAPIVersion,
		EnvAzureDeployment: c.Secrets.AzureDeployment,
	}
	var missing []string
	for _, name := range RequiredSecrets {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}

	if _, err := llm.ParseModel(c.Model); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunking.Enabled && c.Chunking.MaxSize <= 0 {
		return fmt.Errorf("invalid configuration: chunking.max_size must be positive")
	}
	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: browser.timeout must be positive")
	}
	if c.Browser.NavigateSettle < 0 || c.Browser.ActionSettle < 0 {
		return fmt.Errorf("invalid configuration: settle delays must not be negative")
	}
	return nil
}
