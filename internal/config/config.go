// Package config loads fitlink configuration from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/validation"
	"github.com/spf13/viper"
)

const (
	EnvProd = "production"
	EnvDev  = "development"
	EnvTest = "test"
)

// Config holds application configuration loaded from environment variables or config file.
type Config struct {
	AppEnv    string `mapstructure:"app_env" default:"development" validate:"required,oneof=production development test"`
	Port      string `mapstructure:"port" default:"3000" validate:"required"`
	AppURL    string `mapstructure:"app_url" default:"http://localhost:3000" validate:"required,url"`
	ErrorPath string `mapstructure:"error_path" default:"/dashboard" validate:"required,startswith=/"`

	DatabaseURL string `secret:"true" mapstructure:"database_url" default:"fitlink.db" validate:"required"`

	// Bearer credential verification
	AuthJWTSecret string `secret:"true" mapstructure:"auth_jwt_secret" validate:"required_without=AuthJWKSURL"`
	AuthJWKSURL   string `mapstructure:"auth_jwks_url" validate:"omitempty,url"`
	AuthAudience  string `mapstructure:"auth_audience"`

	// Pending-connect state tracking
	StateStore string        `mapstructure:"state_store" default:"none" validate:"oneof=none memory redis"`
	StateTTL   time.Duration `mapstructure:"state_ttl" default:"10m" validate:"gt=0"`
	RedisURL   string        `secret:"true" mapstructure:"redis_url" default:"redis://localhost:6379/0"`

	ProviderTimeout time.Duration `mapstructure:"provider_timeout" default:"10s" validate:"gt=0"`

	// Fitbit
	FitbitClientID     string `mapstructure:"fitbit_client_id"`
	FitbitClientSecret string `secret:"true" mapstructure:"fitbit_client_secret"`
	FitbitRedirectURI  string `mapstructure:"fitbit_redirect_uri"`
	FitbitTokenURL     string `mapstructure:"fitbit_token_url"`
	FitbitAuthURL      string `mapstructure:"fitbit_auth_url"`

	// Oura
	OuraClientID     string `mapstructure:"oura_client_id"`
	OuraClientSecret string `secret:"true" mapstructure:"oura_client_secret"`
	OuraRedirectURI  string `mapstructure:"oura_redirect_uri"`
	OuraTokenURL     string `mapstructure:"oura_token_url"`
	OuraAuthURL      string `mapstructure:"oura_auth_url"`

	// Logging
	LogLevel string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// Load loads configuration from config file and environment variables using viper.
func Load() *Config {
	cfg := Config{}

	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Could not load .env file", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	if err := defaults.Set(&cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}

	// Bind env vars for each field
	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		field := typeOfCfg.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Error("Error read config file", "error", err)
		}
		logger.Debug("No config file found, using environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("Could not unmarshal config", "error", err)
	}

	logger.Info("Loaded config", "config", cfg.String())

	return &cfg
}

// Validate checks the struct-level constraints declared in the validate tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	// Report environment variable names rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToUpper(f.Tag.Get("mapstructure"))
	})
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", validation.FromValidator(err, envName))
	}
	return nil
}

// envName maps a Config field name to its environment variable.
func envName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	return strings.ToUpper(f.Tag.Get("mapstructure"))
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProd
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Name
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" && !v.Field(i).IsZero() {
			value = "***REDACTED***"
		}
		sb.WriteString(name + ": " + toString(value))
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// toString converts interface{} to string for String
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
