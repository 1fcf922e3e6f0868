package config

import "os"

// Server captures process-level configuration.
type Server struct {
	Addr        string
	BotToken    string
	StrictAuth  bool
	AllowUpdate bool
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string
	SeedDemo    bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
//
// BOT_TOKEN is the shared secret used to verify launch payloads; it must never
// be logged or echoed back. When empty, every submission is treated as
// unverified (or rejected outright under STRICT_AUTH).
func FromEnv() Server {
	addr := os.Getenv("ROLLCALL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	allowUpdate := true
	if os.Getenv("ALLOW_UPDATE") == "false" {
		allowUpdate = false
	}

	return Server{
		Addr:        addr,
		BotToken:    os.Getenv("BOT_TOKEN"),
		StrictAuth:  os.Getenv("STRICT_AUTH") == "true",
		AllowUpdate: allowUpdate,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFormat:   os.Getenv("LOG_FORMAT"),
		SeedDemo:    os.Getenv("ROLLCALL_SEED") == "true",
	}
}
