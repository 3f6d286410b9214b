package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/config.yaml"
)

type Config struct {
	CacheDir                  string        `koanf:"cache_dir" default:"/config/cache"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	JWTSecret                 string        `koanf:"jwt_secret" validate:"required"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"8080"`

	// Google Books volumes API.
	CatalogAPIKey    string        `koanf:"catalog_api_key"`
	CatalogBaseURL   string        `koanf:"catalog_base_url" default:"https://www.googleapis.com/books/v1"`
	CatalogCacheTTL  time.Duration `koanf:"catalog_cache_ttl" default:"24h"`
	CatalogRateBurst int           `koanf:"catalog_rate_burst" default:"5"`
	CatalogRateLimit float64       `koanf:"catalog_rate_limit" default:"5"`
	CatalogTimeout   time.Duration `koanf:"catalog_timeout" default:"10s"`

	// Cloud Vision images:annotate.
	TextRecognitionAPIKey  string        `koanf:"text_recognition_api_key"`
	TextRecognitionBaseURL string        `koanf:"text_recognition_base_url" default:"https://vision.googleapis.com/v1"`
	TextRecognitionTimeout time.Duration `koanf:"text_recognition_timeout" default:"15s"`

	// OpenAI-compatible chat completions.
	AdvisoryAPIKey      string        `koanf:"advisory_api_key"`
	AdvisoryBaseURL     string        `koanf:"advisory_base_url" default:"https://api.openai.com/v1"`
	AdvisoryMaxTokens   int           `koanf:"advisory_max_tokens" default:"500"`
	AdvisoryModel       string        `koanf:"advisory_model" default:"gpt-3.5-turbo"`
	AdvisoryTemperature float64       `koanf:"advisory_temperature" default:"0.7"`
	AdvisoryTimeout     time.Duration `koanf:"advisory_timeout" default:"20s"`
}

// New loads the config file (if present) and then environment variables on
// top of it, applies defaults, and validates required values.
func New() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv(configFileEnv)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "loading config file %s", path)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests: an in-memory database, an
// in-memory cache, and a fixed JWT secret.
func NewForTest() *Config {
	cfg := &Config{
		DatabaseFilePath: ":memory:",
		JWTSecret:        "test-secret",
		ServerHost:       "127.0.0.1",
	}
	// Defaults can't fail on this struct.
	_ = defaults.Set(cfg)
	cfg.CacheDir = ""
	return cfg
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("koanf")
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fmt.Sprintf("%s (%s)", strings.ToUpper(fe.Field()), fe.Field()))
	}
	return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
}
