package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "GESTURE"

var ErrInvalid = errors.New("invalid config")

type Session struct {
	TopK         int      `yaml:"top_k" mapstructure:"top_k"`
	MinScore     float64  `yaml:"min_score" mapstructure:"min_score"`
	Ignore       []string `yaml:"ignore" mapstructure:"ignore"`
	PersistEmpty bool     `yaml:"persist_empty" mapstructure:"persist_empty"`
}

type FileSink struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Format  string `yaml:"format" mapstructure:"format"` // json | yaml
}
type HTTPSink struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}
type AMQPSink struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Queue string `yaml:"queue" mapstructure:"queue"`
}
type SQLiteSink struct {
	Path string `yaml:"path" mapstructure:"path"`
}
type Sinks struct {
	File   FileSink   `yaml:"file" mapstructure:"file"`
	HTTP   HTTPSink   `yaml:"http" mapstructure:"http"`
	AMQP   AMQPSink   `yaml:"amqp" mapstructure:"amqp"`
	SQLite SQLiteSink `yaml:"sqlite" mapstructure:"sqlite"`
}

type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text | json
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Session Session `yaml:"session" mapstructure:"session"`
	Sinks   Sinks   `yaml:"sinks" mapstructure:"sinks"`
	Paths   struct {
		Outputs string `yaml:"outputs" mapstructure:"outputs"`
	} `yaml:"paths" mapstructure:"paths"`
}

func Default() *Root {
	var c Root
	c.Pipeline.Name = "gesture-session"
	c.Pipeline.LogLvl = "info"
	c.Pipeline.LogFormat = "text"
	c.Session.TopK = 5
	c.Session.Ignore = []string{}
	c.Sinks.File.Enabled = true
	c.Sinks.File.Format = "json"
	c.Sinks.HTTP.Timeout = 30
	c.Paths.Outputs = "outputs"
	return &c
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("pipeline.name", d.Pipeline.Name)
	v.SetDefault("pipeline.version", d.Pipeline.Version)
	v.SetDefault("pipeline.log_level", d.Pipeline.LogLvl)
	v.SetDefault("pipeline.log_format", d.Pipeline.LogFormat)
	v.SetDefault("session.top_k", d.Session.TopK)
	v.SetDefault("session.min_score", d.Session.MinScore)
	v.SetDefault("session.ignore", d.Session.Ignore)
	v.SetDefault("session.persist_empty", d.Session.PersistEmpty)
	v.SetDefault("sinks.file.enabled", d.Sinks.File.Enabled)
	v.SetDefault("sinks.file.format", d.Sinks.File.Format)
	v.SetDefault("sinks.http.url", d.Sinks.HTTP.URL)
	v.SetDefault("sinks.http.timeout", d.Sinks.HTTP.Timeout)
	v.SetDefault("sinks.amqp.url", d.Sinks.AMQP.URL)
	v.SetDefault("sinks.amqp.queue", d.Sinks.AMQP.Queue)
	v.SetDefault("sinks.sqlite.path", d.Sinks.SQLite.Path)
	v.SetDefault("paths.outputs", d.Paths.Outputs)
}

// Load reads path, or the first config.yaml found for CONFIG_ENV when path is
// empty. GESTURE_* environment variables (optionally from .env) override file
// values, e.g. GESTURE_SESSION_TOP_K.
func Load(path string) (*Root, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("config", "config.yaml"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Root) Validate() error {
	if c.Session.TopK <= 0 {
		return fmt.Errorf("%w: session.top_k must be positive, got %d", ErrInvalid, c.Session.TopK)
	}
	if c.Session.MinScore < 0 || c.Session.MinScore > 1 {
		return fmt.Errorf("%w: session.min_score must be within [0,1], got %g", ErrInvalid, c.Session.MinScore)
	}
	switch c.Sinks.File.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: sinks.file.format %q", ErrInvalid, c.Sinks.File.Format)
	}
	switch c.Pipeline.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: pipeline.log_format %q", ErrInvalid, c.Pipeline.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.Pipeline.LogLvl); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Sinks.AMQP.URL != "" && c.Sinks.AMQP.Queue == "" {
		return fmt.Errorf("%w: sinks.amqp.queue is required with sinks.amqp.url", ErrInvalid)
	}
	return nil
}

func (c *Root) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
