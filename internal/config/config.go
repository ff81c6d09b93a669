// Package config loads the wayfarer configuration from an optional YAML file,
// a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/wayfarer/internal/travel"
	"github.com/aretw0/wayfarer/pkg/persistence/middleware"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "wayfarer.yaml"

// EnvPrefix marks environment overrides, e.g. WAYFARER_HTTP__ADDR.
const EnvPrefix = "WAYFARER_"

const (
	ServerGemini = "gemini"
	ServerGroq   = "groq"

	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Travel  travel.Config `mapstructure:"travel" yaml:"travel"`
	Runner  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

type AppConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Debug     bool   `mapstructure:"debug" yaml:"debug"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProviderConfig describes one completion backend.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type LLMConfig struct {
	// Server selects the active provider: gemini or groq.
	Server string         `mapstructure:"server" yaml:"server"`
	Gemini ProviderConfig `mapstructure:"gemini" yaml:"gemini"`
	Groq   ProviderConfig `mapstructure:"groq" yaml:"groq"`
}

type SearchConfig struct {
	SerperKey string `mapstructure:"serper_key" yaml:"serper_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Location  string `mapstructure:"location" yaml:"location"`
	Country   string `mapstructure:"country" yaml:"country"`
}

type RunnerConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size"`
	RunTimeout   time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxInputSize int           `mapstructure:"max_input_size" yaml:"max_input_size"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
}

type StorageConfig struct {
	// Backend is memory, file or redis.
	Backend       string      `mapstructure:"backend" yaml:"backend"`
	Dir           string      `mapstructure:"dir" yaml:"dir"`
	Redis         RedisConfig `mapstructure:"redis" yaml:"redis"`
	EncryptionKey string      `mapstructure:"encryption_key" yaml:"encryption_key"`
	PIIPatterns   []string    `mapstructure:"pii_patterns" yaml:"pii_patterns"`
	ArchiveDir    string      `mapstructure:"archive_dir" yaml:"archive_dir"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Output is a file path; empty means stderr.
	Output string `mapstructure:"output" yaml:"output"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:      "Travel Guide API",
			LogLevel:  "info",
			LogFormat: "text",
		},
		HTTP: HTTPConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LLM: LLMConfig{
			Server: ServerGemini,
			Gemini: ProviderConfig{
				Model:   "gemini-2.0-flash",
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			},
			Groq: ProviderConfig{
				Model:   "llama-3.3-70b-versatile",
				BaseURL: "https://api.groq.com/openai/v1",
			},
		},
		Search: SearchConfig{
			BaseURL: "https://google.serper.dev",
		},
		Travel: travel.DefaultConfig(),
		Runner: RunnerConfig{
			Workers:      4,
			QueueSize:    64,
			RunTimeout:   5 * time.Minute,
			PollInterval: 100 * time.Millisecond,
			MaxInputSize: 4096,
		},
		Storage: StorageConfig{
			Backend:    BackendMemory,
			Dir:        ".wayfarer/sessions",
			ArchiveDir: "trips",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				TTL:    24 * time.Hour,
				Prefix: "wayfarer:session:",
			},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// envAliases are the unprefixed variable names a plain .env file uses.
var envAliases = map[string]string{
	"APP_NAME":       "app.name",
	"DEBUG":          "app.debug",
	"LOG_LEVEL":      "app.log_level",
	"LLM_SERVER":     "llm.server",
	"GEMINI_API_KEY": "llm.gemini.api_key",
	"GEMINI_MODEL":   "llm.gemini.model",
	"GROQ_API_KEY":   "llm.groq.api_key",
	"GROQ_MODEL":     "llm.groq.model",
	"SERPER_API_KEY": "search.serper_key",
	"CORS_ORIGINS":   "http.cors_origins",
	"REDIS_ADDR":     "storage.redis.addr",
}

// Load builds the configuration. Sources, lowest precedence first: defaults,
// the YAML file at path (or DefaultFile when path is empty and it exists),
// .env, unprefixed aliases, then WAYFARER_* variables where "__" separates
// nesting levels (WAYFARER_STORAGE__REDIS__ADDR).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := decode(raw, &cfg, true); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if err := decode(fromEnv(os.Environ()), &cfg, false); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) (map[string]any, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return nil, nil
		}
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return raw, nil
}

// decode overlays raw onto cfg. Slices are replaced, not merged. Unknown
// keys are only an error when strict.
func decode(raw map[string]any, cfg *Config, strict bool) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      strict,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// fromEnv turns KEY=VALUE pairs into a nested map. Empty values are skipped
// and prefixed keys win over aliases.
func fromEnv(environ []string) map[string]any {
	out := map[string]any{}
	var prefixed [][2]string
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if path, ok := envAliases[key]; ok {
			setPath(out, strings.Split(path, "."), value)
			continue
		}
		if rest, ok := strings.CutPrefix(key, EnvPrefix); ok && rest != "" {
			prefixed = append(prefixed, [2]string{rest, value})
		}
	}
	for _, kv := range prefixed {
		path := strings.Split(strings.ToLower(kv[0]), "__")
		if slices.Contains(path, "") {
			continue
		}
		setPath(out, path, kv[1])
	}
	return out
}

func setPath(m map[string]any, path []string, value string) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Server {
	case ServerGemini, ServerGroq:
	default:
		errs = append(errs, fmt.Errorf("llm.server must be %q or %q, got %q", ServerGemini, ServerGroq, c.LLM.Server))
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be memory, file or redis, got %q", c.Storage.Backend))
	}
	if c.Runner.Workers < 1 {
		errs = append(errs, errors.New("runner.workers must be at least 1"))
	}
	if c.Runner.QueueSize < 0 {
		errs = append(errs, errors.New("runner.queue_size must not be negative"))
	}
	if c.Storage.EncryptionKey != "" {
		if _, err := middleware.DecodeKey(c.Storage.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("storage.encryption_key: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Provider returns the settings of the selected completion backend.
func (c *Config) Provider() ProviderConfig {
	if c.LLM.Server == ServerGroq {
		return c.LLM.Groq
	}
	return c.LLM.Gemini
}
