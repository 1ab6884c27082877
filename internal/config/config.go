package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "QUIZ"

type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Attempt Attempt `mapstructure:"attempt"`
	Log     Log     `mapstructure:"log"`
	Trivia  Trivia  `mapstructure:"trivia"`
}

type Server struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Storage struct {
	Driver         string        `mapstructure:"driver"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	TestsKey       string        `mapstructure:"tests_key"`
	SubmissionsKey string        `mapstructure:"submissions_key"`
}

type Attempt struct {
	SecondsPerQuestion int           `mapstructure:"seconds_per_question"`
	Retention          time.Duration `mapstructure:"retention"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Trivia struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "quiz.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.poll_interval", time.Second)
	v.SetDefault("storage.tests_key", "english-tests")
	v.SetDefault("storage.submissions_key", "english-test-submissions")
	v.SetDefault("attempt.seconds_per_question", 60)
	v.SetDefault("attempt.retention", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("trivia.url", "https://opentdb.com/api.php")
	v.SetDefault("trivia.timeout", 5*time.Second)
}

// Load reads settings from defaults, the optional YAML file at path, a .env
// file in the working directory and QUIZ_* environment variables, later
// sources winning. QUIZ_STORAGE_DRIVER overrides storage.driver.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("addr", cfg.Server.Addr).
		Str("driver", cfg.Storage.Driver).
		Int("seconds_per_question", cfg.Attempt.SecondsPerQuestion).
		Msg("config loaded")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Attempt.SecondsPerQuestion <= 0 {
		return errors.New("attempt.seconds_per_question must be positive")
	}
	if c.Storage.TestsKey == "" || c.Storage.SubmissionsKey == "" {
		return errors.New("storage keys must not be empty")
	}
	if c.Storage.TestsKey == c.Storage.SubmissionsKey {
		return errors.New("storage.tests_key and storage.submissions_key must differ")
	}
	return nil
}
