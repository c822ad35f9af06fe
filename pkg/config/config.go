package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	CatalogTimeout            time.Duration `koanf:"catalog_timeout" default:"15s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	GoogleBooksAPIKey         string        `koanf:"google_books_api_key" required:"catalog"`
	GoogleBooksBaseURL        string        `koanf:"google_books_base_url" default:"https://www.googleapis.com/books/v1"`
	ImportMaxUploadBytes      int64         `koanf:"import_max_upload_bytes" default:"10485760"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"5000"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "./config.yaml"
	environmentENV    = "ENVIRONMENT"
)

// New builds the config from struct defaults, then an optional YAML file, then
// environment variables. Later sources win. A .env file in the working
// directory is loaded into the environment first without overriding
// variables that are already set.
func New() (*Config, error) {
	return load(true)
}

// NewOffline is New for tools that never call Google Books, so the API key
// may be absent.
func NewOffline() (*Config, error) {
	return load(false)
}

func load(catalog bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	known := knownKeys()
	// Empty variables are treated as unset so they don't clobber file values.
	err := k.Load(env.ProviderWithValue("", ".", func(s, value string) (string, interface{}) {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok || value == "" {
			return "", nil
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg, catalog); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config pointing at an in-memory database. It never
// reads the environment.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.GoogleBooksAPIKey = "test-api-key"
	cfg.ServerHost = "127.0.0.1"
	return cfg
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		keys[keyName(t.Field(i))] = struct{}{}
	}
	return keys
}

// checkRequired rejects zero values in fields tagged required:"true", and in
// fields tagged required:"catalog" when catalog is set.
func checkRequired(cfg *Config, catalog bool) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		switch field.Tag.Get("required") {
		case "true":
		case "catalog":
			if !catalog {
				continue
			}
		default:
			continue
		}
		if !v.Field(i).IsZero() {
			continue
		}
		key := keyName(field)
		return errors.Errorf("missing required config: set %s or %s in the config file", strings.ToUpper(key), key)
	}
	return nil
}

func keyName(field reflect.StructField) string {
	if name := field.Tag.Get("koanf"); name != "" {
		return name
	}
	return toSnakeCase(field.Name)
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
