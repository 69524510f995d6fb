package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
)

type Config struct {
	Addr     string
	Env      string // "development" or "production"
	LogLevel string
	TickRate int    // room ticks per second

	// RoomIdle closes rooms nobody has joined, or everyone has left.
	RoomIdle time.Duration

	Rules engine.Rules
}

// Load reads a .env file if one is present, then the process environment.
// Every malformed variable is reported, not only the first.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Addr:     r.str("ADDR", ":8080"),
		Env:      r.str("APP_ENV", "development"),
		LogLevel: r.str("LOG_LEVEL", "info"),
		TickRate: r.int("TICK_RATE", 30),
		RoomIdle: r.duration("ROOM_IDLE_TIMEOUT", 5*time.Minute),
		Rules:    engine.DefaultRules(),
	}

	rules := &cfg.Rules
	rules.TurnTime = r.duration("TURN_TIME", rules.TurnTime)
	rules.RoundsPerSide = r.int("ROUNDS_PER_SIDE", rules.RoundsPerSide)
	rules.TurnsBeforeRoleSwap = r.int("TURNS_BEFORE_ROLE_SWAP", rules.TurnsBeforeRoleSwap)
	rules.RoleSelectionTime = r.duration("ROLE_SELECTION_TIME", rules.RoleSelectionTime)
	rules.AutoStart = r.bool("AUTO_START", rules.AutoStart)
	rules.WinnerCoins = r.int("WINNER_COINS", rules.WinnerCoins)
	rules.LoserCoins = r.int("LOSER_COINS", rules.LoserCoins)

	if cfg.TickRate <= 0 {
		r.fail("TICK_RATE", fmt.Errorf("must be positive, got %d", cfg.TickRate))
	}
	if cfg.RoomIdle <= 0 {
		r.fail("ROOM_IDLE_TIMEOUT", fmt.Errorf("must be positive, got %s", cfg.RoomIdle))
	}
	if rules.TurnTime <= 0 {
		r.fail("TURN_TIME", fmt.Errorf("must be positive, got %s", rules.TurnTime))
	}
	if rules.RoundsPerSide <= 0 {
		r.fail("ROUNDS_PER_SIDE", fmt.Errorf("must be positive, got %d", rules.RoundsPerSide))
	}
	if rules.TurnsBeforeRoleSwap < 0 {
		r.fail("TURNS_BEFORE_ROLE_SWAP", fmt.Errorf("must not be negative, got %d", rules.TurnsBeforeRoleSwap))
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		r.fail("LOG_LEVEL", err)
	}

	if r.err != nil {
		return Config{}, r.err
	}
	return cfg, nil
}

// TickInterval is the room tick period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Logger builds the process logger: JSON in production, console otherwise.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if c.Env == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) fail(key string, err error) {
	r.err = multierr.Append(r.err, fmt.Errorf("%s: %w", key, err))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

// duration accepts Go durations ("1500ms") and bare seconds ("10").
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}
