package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sbr_farm/internal/logger"

	"github.com/joho/godotenv"
)

// Reservation policies for withdrawals.
const (
	ReserveOnRequest  = "request"
	ReserveOnApproval = "approval"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	DBMaxConns  int32
	JWTSecret   string

	// Telegram WebApp login is disabled when empty
	BotToken       string
	InitDataTTL    time.Duration
	PlayerTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	// Deadline applied to every store transaction
	StoreTimeout time.Duration

	SchedulerEnabled      bool
	WithdrawalReservation string

	APIRateLimit  int
	APIRateWindow time.Duration

	// Per-player limit on game actions
	ActionRateLimit  int
	ActionRateWindow time.Duration

	GameConfigPath string
	Game           *Game
}

// Load reads the environment (and .env if present) once at process start.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	reservation := strings.ToLower(strings.TrimSpace(os.Getenv("WITHDRAWAL_RESERVATION")))
	switch reservation {
	case "":
		reservation = ReserveOnRequest
	case ReserveOnRequest, ReserveOnApproval:
	default:
		logger.Fatal("WITHDRAWAL_RESERVATION must be request or approval", "value", reservation)
	}

	cfg := &Config{
		AppPort:               port,
		DatabaseURL:           dbURL,
		DBMaxConns:            int32(envInt("DB_MAX_CONNS", 0)),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		BotToken:              os.Getenv("BOT_TOKEN"),
		InitDataTTL:           envDuration("INIT_DATA_TTL", time.Hour),
		PlayerTokenTTL:        envDuration("PLAYER_TOKEN_TTL", 24*time.Hour),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               envInt("REDIS_DB", 0),
		LogLevel:              envDefault("LOG_LEVEL", "info"),
		LogJSON:               os.Getenv("LOG_JSON") == "true",
		StoreTimeout:          envDuration("STORE_TIMEOUT", 5*time.Second),
		SchedulerEnabled:      os.Getenv("SCHEDULER_ENABLED") != "false",
		WithdrawalReservation: reservation,
		APIRateLimit:          envInt("API_RATE_LIMIT", 30),
		APIRateWindow:         envDuration("API_RATE_WINDOW", time.Minute),
		ActionRateLimit:       envInt("ACTION_RATE_LIMIT", 60),
		ActionRateWindow:      envDuration("ACTION_RATE_WINDOW", time.Minute),
		GameConfigPath:        os.Getenv("GAME_CONFIG_PATH"),
	}

	game, err := LoadGame(cfg.GameConfigPath)
	if err != nil {
		logger.Fatal("failed to load game config", "path", cfg.GameConfigPath, "error", err)
	}
	cfg.Game = game

	return cfg
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
