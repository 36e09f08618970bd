package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/smith3v/lexicon-clash/pkg/logger"
)

// EnvPrefix is stripped from environment variables; "__" separates nested keys,
// so LEXICON_GAME__WILDCARD_RULE sets game.wildcard_rule.
const EnvPrefix = "LEXICON_"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Telegram TelegramConfig `koanf:"telegram"`
	HTTP     HTTPConfig     `koanf:"http"`
	Logging  LoggingConfig  `koanf:"logging"`
	Game     GameConfig     `koanf:"game"`
	Content  ContentConfig  `koanf:"content"`
	Catalog  CatalogConfig  `koanf:"catalog"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=postgres sqlite memory"`
	Host     string `koanf:"host" validate:"required_if=Driver postgres"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname" validate:"required_if=Driver postgres"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	SSLMode  string `koanf:"sslmode"`
	Path     string `koanf:"path" validate:"required_if=Driver sqlite"`
}

type TelegramConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token" validate:"required_if=Enabled true"`
}

type HTTPConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Addr           string        `koanf:"addr" validate:"required_if=Enabled true"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	CORSOrigin     string        `koanf:"cors_origin"`
}

type LoggingConfig struct {
	Level     string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File      string `koanf:"file"`
	Format    string `koanf:"format" validate:"omitempty,oneof=text json"`
	GormLevel string `koanf:"gorm_level" validate:"omitempty,oneof=silent error warn info"`
}

// GameConfig tunes round building, scoring persistence and the journal.
type GameConfig struct {
	WildcardRule         string        `koanf:"wildcard_rule" validate:"oneof=bothZero countsEqual"`
	TermMode             string        `koanf:"term_mode" validate:"oneof=literal firstSynonym allForms"`
	MaxRerollAttempts    int           `koanf:"max_reroll_attempts" validate:"min=1,max=10"`
	OnExhausted          string        `koanf:"on_exhausted" validate:"oneof=fallback fail"`
	ProviderTimeout      time.Duration `koanf:"provider_timeout" validate:"gt=0,lte=5s"`
	PoolLimit            int           `koanf:"pool_limit" validate:"min=1,max=100"`
	ExcerptLimit         int           `koanf:"excerpt_limit" validate:"min=0,max=10"`
	SessionTTL           time.Duration `koanf:"session_ttl" validate:"gt=0"`
	ClearCompletedOnInit bool          `koanf:"clear_completed_on_init"`
	OptimisticLocking    bool          `koanf:"optimistic_locking"`
	JournalLimit         int           `koanf:"journal_limit" validate:"min=0,max=1000"`
}

type ContentConfig struct {
	Sources             []string `koanf:"sources" validate:"min=1,dive,oneof=curated reddit"`
	RedditBaseURL       string   `koanf:"reddit_base_url" validate:"url"`
	UserAgent           string   `koanf:"user_agent" validate:"required"`
	FetchComments       bool     `koanf:"fetch_comments"`
	FetchLinkedArticles bool     `koanf:"fetch_linked_articles"`
	MaxBodyBytes        int64    `koanf:"max_body_bytes" validate:"gt=0"`
}

type CatalogConfig struct {
	Path string `koanf:"path"`
}

var AppConfig = Defaults()

// Defaults returns the configuration used when no source overrides a key.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Port:    5432,
			SSLMode: "disable",
			Path:    "lexicon-clash.db",
		},
		HTTP: HTTPConfig{
			Enabled:        true,
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			GormLevel: "warn",
		},
		Game: GameConfig{
			WildcardRule:         "bothZero",
			TermMode:             "firstSynonym",
			MaxRerollAttempts:    5,
			OnExhausted:          "fallback",
			ProviderTimeout:      5 * time.Second,
			PoolLimit:            10,
			ExcerptLimit:         3,
			SessionTTL:           30 * 24 * time.Hour,
			ClearCompletedOnInit: true,
			JournalLimit:         50,
		},
		Content: ContentConfig{
			Sources:       []string{"curated"},
			RedditBaseURL: "https://www.reddit.com",
			UserAgent:     "lexicon-clash/1.0",
			MaxBodyBytes:  2 * 1024 * 1024,
		},
	}
}

// NewFlagSet declares the command-line overrides understood by LoadConfigWithFlags.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Defaults()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "config.json", "path to the configuration file")
	fs.String("database.driver", d.Database.Driver, "database driver (postgres, sqlite or memory)")
	fs.String("database.path", d.Database.Path, "sqlite database file")
	fs.String("http.addr", d.HTTP.Addr, "HTTP listen address")
	fs.Bool("http.enabled", d.HTTP.Enabled, "serve the HTTP API")
	fs.Bool("telegram.enabled", d.Telegram.Enabled, "run the Telegram bot")
	fs.String("logging.level", d.Logging.Level, "log level (debug, info, warn, error)")
	fs.String("game.wildcard_rule", d.Game.WildcardRule, "wildcard rule (bothZero or countsEqual)")
	fs.String("game.term_mode", d.Game.TermMode, "term mode (literal, firstSynonym or allForms)")
	return fs
}

func LoadConfig(filename string) error {
	return LoadConfigWithFlags(filename, nil)
}

// LoadConfigWithFlags layers defaults, the config file, LEXICON_ environment
// variables and the given flags, validates the result and stores it in AppConfig.
func LoadConfigWithFlags(filename string, fs *pflag.FlagSet) error {
	cfg, err := Load(filename, fs)
	if err != nil {
		logger.Error("failed to load config", "file", filename, "error", err)
		return err
	}
	AppConfig = cfg
	return nil
}

func Load(filename string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(filename); err != nil {
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	// The YAML parser accepts JSON documents as well.
	if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envKey(name string) string {
	key := strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
