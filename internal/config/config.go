package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr   = ":10000"
	DefaultPollInterval = 300 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultPageSize     = 1000
)

type Store struct {
	BaseURL            string  `yaml:"url"`
	Token              string  `yaml:"token"`
	Timeout            Seconds `yaml:"timeout_seconds"`
	PageSize           int     `yaml:"page_size"`
	RateLimit          float64 `yaml:"rate_limit"`
	InsecureSkipVerify bool    `yaml:"insecure_skip_verify"`
}

type Probe struct {
	BaseURL            string  `yaml:"url"`
	Username           string  `yaml:"username"`
	Password           string  `yaml:"password"`
	Timeout            Seconds `yaml:"timeout_seconds"`
	InsecureSkipVerify bool    `yaml:"insecure_skip_verify"`
}

type Poll struct {
	Enabled  bool    `yaml:"enabled"`
	Interval Seconds `yaml:"interval_seconds"`
}

type Journal struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Config is read once at startup and passed to every component.
type Config struct {
	ListenAddr string            `yaml:"listen_addr"`
	Store      Store             `yaml:"store"`
	Probe      Probe             `yaml:"probe"`
	Poll       Poll              `yaml:"poll"`
	NATSURL    string            `yaml:"nats_url"`
	Journal    Journal           `yaml:"journal"`
	Aliases    map[string]string `yaml:"aliases"`
}

// Seconds is a duration written as a number of seconds in YAML.
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	var n float64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("expected seconds, got %q", node.Value)
	}
	*s = Seconds(time.Duration(n * float64(time.Second)))
	return nil
}

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func Default() Config {
	return Config{
		ListenAddr: DefaultListenAddr,
		Store:      Store{Timeout: Seconds(DefaultTimeout), PageSize: DefaultPageSize},
		Probe:      Probe{Timeout: Seconds(DefaultTimeout)},
		Poll:       Poll{Enabled: true, Interval: Seconds(DefaultPollInterval)},
	}
}

// Load applies defaults, then the optional CONFIG_FILE, then the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := envReader{getenv: getenv}
	if v := env.first("STORE_URL"); v != "" {
		c.Store.BaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	} else if v := env.first("STORE_HOSTNAME", "CACHET_HOSTNAME"); v != "" {
		c.Store.BaseURL = apiURL("https", v, "/api/v1")
	} else if v := env.first("CACHET_URL"); v != "" {
		c.Store.BaseURL = apiURL("http", v, "/api/v1")
	}
	env.str(&c.Store.Token, "STORE_TOKEN", "CACHET_TOKEN")
	if v := env.first("PROBE_SERVER", "INSIGHTS_SERVER"); v != "" {
		c.Probe.BaseURL = apiURL("https", v, "/api")
	}
	env.str(&c.Probe.Username, "PROBE_USERNAME", "INSIGHTS_USERNAME")
	env.str(&c.Probe.Password, "PROBE_PASSWORD", "INSIGHTS_PASSWORD")
	env.str(&c.ListenAddr, "LISTEN_ADDR")
	env.str(&c.NATSURL, "NATS_URL")
	env.str(&c.Journal.Driver, "JOURNAL_DRIVER")
	env.str(&c.Journal.DSN, "JOURNAL_DSN")
	env.boolean(&c.Poll.Enabled, "POLL_ENABLED")
	env.seconds(&c.Poll.Interval, "POLL_INTERVAL_SECONDS")
	env.seconds(&c.Store.Timeout, "STORE_TIMEOUT_SECONDS")
	env.seconds(&c.Probe.Timeout, "PROBE_TIMEOUT_SECONDS")
	env.integer(&c.Store.PageSize, "STORE_PAGE_SIZE")
	env.float(&c.Store.RateLimit, "STORE_RATE_LIMIT")
	env.boolean(&c.Store.InsecureSkipVerify, "STORE_INSECURE_SKIP_VERIFY")
	env.boolean(&c.Probe.InsecureSkipVerify, "PROBE_INSECURE_SKIP_VERIFY")
	return env.err()
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	if c.Store.BaseURL == "" {
		problems = append(problems, "STORE_URL or STORE_HOSTNAME is required")
	}
	if c.Store.Token == "" {
		problems = append(problems, "STORE_TOKEN is required")
	}
	if c.Poll.Enabled {
		if c.Probe.BaseURL == "" {
			problems = append(problems, "PROBE_SERVER is required when polling is enabled")
		}
		if c.Probe.Username == "" {
			problems = append(problems, "PROBE_USERNAME is required when polling is enabled")
		}
		if c.Probe.Password == "" {
			problems = append(problems, "PROBE_PASSWORD is required when polling is enabled")
		}
		if c.Poll.Interval.Duration() <= 0 {
			problems = append(problems, "POLL_INTERVAL_SECONDS must be positive")
		}
	}
	if c.Store.PageSize <= 0 {
		problems = append(problems, "STORE_PAGE_SIZE must be positive")
	}
	if c.Journal.Driver != "" && c.Journal.Driver != "memory" && c.Journal.Driver != "none" && c.Journal.DSN == "" {
		problems = append(problems, "JOURNAL_DSN is required for journal driver "+c.Journal.Driver)
	}
	if c.ListenAddr == "" {
		problems = append(problems, "LISTEN_ADDR must not be empty")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// apiURL turns a bare host into scheme://host+path; full URLs are kept as given.
func apiURL(scheme, value, path string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if strings.Contains(value, "://") {
		return value
	}
	return scheme + "://" + value + path
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (e *envReader) first(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(e.getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func (e *envReader) str(dst *string, keys ...string) {
	if v := e.first(keys...); v != "" {
		*dst = v
	}
}

func (e *envReader) integer(dst *int, key string) {
	v := e.first(key)
	if v == "" {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, v))
		return
	}
	*dst = parsed
}

func (e *envReader) float(dst *float64, key string) {
	v := e.first(key)
	if v == "" {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, v))
		return
	}
	*dst = parsed
}

func (e *envReader) seconds(dst *Seconds, key string) {
	v := e.first(key)
	if v == "" {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number of seconds", key, v))
		return
	}
	*dst = Seconds(time.Duration(parsed * float64(time.Second)))
}

func (e *envReader) boolean(dst *bool, key string) {
	v := e.first(key)
	if v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
		return
	}
	*dst = parsed
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return errors.New("invalid environment: " + strings.Join(e.errs, "; "))
}
