package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the application configuration: defaults, then an optional
// TOML file, then DIFFSCOPE_-prefixed environment variables, each
// layer overriding the previous.
type Config struct {
	General struct {
		Granularity string `koanf:"granularity"` // "file" or "hunk"
		LogLevel    string `koanf:"log_level"`
		PrettyLogs  bool   `koanf:"pretty_logs"`
	} `koanf:"general"`

	Search struct {
		Binary         string `koanf:"binary"`
		TimeoutSeconds int    `koanf:"timeout_seconds"`
		CacheSize      int    `koanf:"cache_size"`
		MaxOutputKB    int    `koanf:"max_output_kb"`
		IgnoreFile     string `koanf:"ignore_file"`
	} `koanf:"search"`

	GitHub struct {
		Token string `koanf:"token"`
		Owner string `koanf:"owner"`
		Repo  string `koanf:"repo"`
	} `koanf:"github"`

	Publish struct {
		MaxSecondaryRetries  int `koanf:"max_secondary_retries"`
		SecondaryMinWaitSecs int `koanf:"secondary_min_wait_seconds"`
		PrimaryWaitSecs      int `koanf:"primary_wait_seconds"`
	} `koanf:"publish"`

	AI struct {
		Model       string  `koanf:"model"`
		APIKey      string  `koanf:"api_key"`
		Temperature float64 `koanf:"temperature"`
	} `koanf:"ai"`
}

// Load reads configuration from configPath, or from the default
// locations when empty.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"general.granularity":                "hunk",
		"general.log_level":                  "info",
		"search.timeout_seconds":             30,
		"search.cache_size":                  256,
		"search.max_output_kb":               2048,
		"search.ignore_file":                 ".diffscopeignore",
		"publish.max_secondary_retries":      3,
		"publish.secondary_min_wait_seconds": 60,
		"publish.primary_wait_seconds":       60,
		"ai.model":                           "gpt-4o-mini",
		"ai.temperature":                     0.2,
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range []string{"./diffscope.toml", "$HOME/.diffscope.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("DIFFSCOPE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DIFFSCOPE_")), "_", ".", -1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields required before any publish can happen.
// Local-only commands (segment, search) do not need platform settings,
// so callers opt in.
func (c *Config) Validate(needPlatform bool) error {
	switch c.General.Granularity {
	case "file", "hunk":
	default:
		return fmt.Errorf("general.granularity must be \"file\" or \"hunk\", got %q", c.General.Granularity)
	}

	if needPlatform {
		if c.GitHub.Token == "" {
			return fmt.Errorf("github.token is required")
		}
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("github.owner and github.repo are required")
		}
	}
	return nil
}

// Init writes a starter configuration file.
func Init(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sample := `# diffscope configuration

[general]
granularity = "hunk"
log_level = "info"

[search]
timeout_seconds = 30
cache_size = 256

[github]
token = "your-github-token"
owner = "your-org"
repo = "your-repo"

[ai]
model = "gpt-4o-mini"
api_key = "your-api-key"
temperature = 0.2
`
	return os.WriteFile(configPath, []byte(sample), 0644)
}
