package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vibebros/logging"
)

const EnvPrefix = "VIBEBROS"

type Config struct {
	Port        int            `mapstructure:"port"`
	ContentDir  string         `mapstructure:"contentDir"`
	SiteURL     string         `mapstructure:"siteURL"`
	AnalyticsDB string         `mapstructure:"analyticsDB"`
	CacheMaxAge time.Duration  `mapstructure:"cacheMaxAge"`
	Log         logging.Config `mapstructure:"log"`
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.SiteURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.CacheMaxAge, validation.Min(time.Duration(0))),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("contentDir", "content/blog")
	v.SetDefault("siteURL", "https://vibebros.dev")
	v.SetDefault("analyticsDB", "")
	v.SetDefault("cacheMaxAge", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads .env, then the config file (cfgFile, or ./config.yaml when
// present), then VIBEBROS_* environment variables, in increasing precedence.
func Load(cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.SiteURL = strings.TrimSuffix(cfg.SiteURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
