package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/egoritak/yesbut/go/internal/game"
)

// Config holds server settings read from the environment
type Config struct {
	Port        string
	CatalogPath string

	RevealCountdown time.Duration
	ResolveDelay    time.Duration
	WinThreshold    int
	InitialHand     int
	HandFloor       int
	DeckPolicy      string
	DeckMargin      int

	NATSURL           string
	NATSStream        string
	NATSSubjectPrefix string

	AllowedOrigins   []string
	LogLevel         string
	LogFormat        string
	WSMaxMessageSize int64
}

// NewConfigFromEnv reads the server environment variables (with defaults).
func NewConfigFromEnv() Config {
	rules := game.DefaultRules()

	return Config{
		Port:              getEnv("PORT", "8080"),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		RevealCountdown:   getEnvAsDuration("REVEAL_COUNTDOWN", rules.RevealCountdown),
		ResolveDelay:      getEnvAsDuration("PAIR_RESOLVE_DELAY", rules.ResolveDelay),
		WinThreshold:      getEnvAsInt("WIN_THRESHOLD", rules.WinThreshold),
		InitialHand:       getEnvAsInt("INITIAL_HAND", rules.InitialHand),
		HandFloor:         getEnvAsInt("HAND_FLOOR", rules.HandFloor),
		DeckPolicy:        strings.ToLower(getEnv("DECK_POLICY", string(rules.DeckPolicy))),
		DeckMargin:        getEnvAsInt("DECK_MARGIN", rules.DeckMargin),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSStream:        getEnv("NATS_STREAM", "YESBUT_EVENTS"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "yesbut.events"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		WSMaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 4096)),
	}
}

// Rules converts the game settings into session rules
func (c Config) Rules() (game.Rules, error) {
	policy := game.DeckPolicy(c.DeckPolicy)
	switch policy {
	case game.DeckPolicyFull, game.DeckPolicySized:
	default:
		return game.Rules{}, fmt.Errorf("unknown deck policy %q", c.DeckPolicy)
	}

	if c.WinThreshold < 1 {
		return game.Rules{}, fmt.Errorf("win threshold must be positive, got %d", c.WinThreshold)
	}
	if c.InitialHand < 0 || c.HandFloor < 0 || c.DeckMargin < 0 {
		return game.Rules{}, fmt.Errorf("hand sizes and deck margin must not be negative")
	}

	return game.Rules{
		InitialHand:     c.InitialHand,
		HandFloor:       c.HandFloor,
		WinThreshold:    c.WinThreshold,
		RevealCountdown: c.RevealCountdown,
		ResolveDelay:    c.ResolveDelay,
		DeckPolicy:      policy,
		DeckMargin:      c.DeckMargin,
	}, nil
}

// Addr returns the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("3s") or a bare number of milliseconds
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
