package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/tileswap/go/internal/models"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is everything a tileswap binary needs. Values come from defaults, then the
// optional YAML file, then PUZZLE_* environment variables.
type Config struct {
	AuthorityURL   string         `yaml:"authority_url"`
	SessionCookie  string         `yaml:"session_cookie"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	LogLevel       string         `yaml:"log_level"`
	Puzzle         PuzzleConfig   `yaml:"puzzle"`
	Gateway        GatewayConfig  `yaml:"gateway"`
	NATS           NATSConfig     `yaml:"nats"`
	Notices        []NoticeConfig `yaml:"notices"`
}

// PuzzleConfig is the state the authority embeds in the puzzle page.
type PuzzleConfig struct {
	// InitialBoard is kept untyped so a malformed value reaches the synchronizer's
	// own check instead of failing config parsing.
	InitialBoard  interface{} `yaml:"initial_board"`
	Locked        bool        `yaml:"locked"`
	ImageBase     string      `yaml:"image_base"`
	Turns         int         `yaml:"turns"`
	Limit         int         `yaml:"limit"`
	Solved        bool        `yaml:"solved"`
	NextURL       string      `yaml:"next_url"`
	GuardInFlight bool        `yaml:"guard_in_flight"`
}

type GatewayConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type NoticeConfig struct {
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Content string `yaml:"content"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AuthorityURL:   "http://localhost:5000",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		Puzzle: PuzzleConfig{
			ImageBase: "/static/puzzle/",
			Limit:     25,
		},
		Gateway: GatewayConfig{
			Port:           "8081",
			AllowedOrigins: []string{"*"},
		},
		NATS: NATSConfig{
			SubjectPrefix: "puzzle.events",
		},
	}
}

// Load reads .env (if present), the YAML file at path (if non-empty), and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.AuthorityURL = getEnv("PUZZLE_AUTHORITY_URL", c.AuthorityURL)
	c.SessionCookie = getEnv("PUZZLE_SESSION_COOKIE", c.SessionCookie)
	c.RequestTimeout = getEnvAsDuration("PUZZLE_REQUEST_TIMEOUT", c.RequestTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if raw := os.Getenv("PUZZLE_INIT_BOARD"); raw != "" {
		c.Puzzle.InitialBoard = json.RawMessage(raw)
	}
	c.Puzzle.Locked = getEnvAsBool("PUZZLE_LOCKED", c.Puzzle.Locked)
	c.Puzzle.ImageBase = getEnv("PUZZLE_IMG_BASE", c.Puzzle.ImageBase)
	c.Puzzle.Turns = getEnvAsInt("PUZZLE_TURNS", c.Puzzle.Turns)
	c.Puzzle.Limit = getEnvAsInt("PUZZLE_LIMIT", c.Puzzle.Limit)
	c.Puzzle.Solved = getEnvAsBool("PUZZLE_SOLVED", c.Puzzle.Solved)
	c.Puzzle.NextURL = getEnv("PUZZLE_NEXT_URL", c.Puzzle.NextURL)
	c.Puzzle.GuardInFlight = getEnvAsBool("PUZZLE_GUARD_IN_FLIGHT", c.Puzzle.GuardInFlight)

	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	if origins := os.Getenv("GATEWAY_ALLOWED_ORIGINS"); origins != "" {
		c.Gateway.AllowedOrigins = strings.Split(origins, ",")
	}

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)
}

// BoardJSON returns the configured initial board as JSON, or nil when unset.
func (p PuzzleConfig) BoardJSON() ([]byte, error) {
	switch v := p.InitialBoard.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// PuzzleConfig converts to the synchronizer's configuration. An unusable board is
// returned as a nil InitialBoard together with the parse error, leaving the
// user-facing report to the synchronizer.
func (c *Config) PuzzleConfig() (puzzle.Config, error) {
	out := puzzle.Config{
		Locked:        c.Puzzle.Locked,
		ImageBase:     c.Puzzle.ImageBase,
		Turns:         c.Puzzle.Turns,
		Limit:         c.Puzzle.Limit,
		Solved:        c.Puzzle.Solved,
		NextURL:       c.Puzzle.NextURL,
		GuardInFlight: c.Puzzle.GuardInFlight,
	}

	raw, err := c.Puzzle.BoardJSON()
	if err != nil {
		return out, fmt.Errorf("%w: %v", models.ErrInvalidBoard, err)
	}
	board, err := models.ParseBoard(raw)
	if err != nil {
		return out, err
	}
	out.InitialBoard = board
	return out, nil
}

// SetupLogging configures the global zerolog logger for a terminal.
func SetupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
