package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	LogLevel             string
	ServerRunAddress     string
	DatabaseURI          string
	JWTSecret            string
	SessionTTL           time.Duration
	SessionSweepSchedule string
	SeedDemoData         bool
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = os.Getenv("LOG_LEVEL")
	if LogLevel == "" {
		LogLevel = "info"
	}

	ServerRunAddress = os.Getenv("SERVER_RUN_ADDRESS")
	if ServerRunAddress == "" {
		ServerRunAddress = "0.0.0.0:8080"
	}

	// An empty DATABASE_URI keeps everything in process memory.
	DatabaseURI = os.Getenv("DATABASE_URI")

	JWTSecret = os.Getenv("JWT_SECRET")
	if JWTSecret == "" {
		JWTSecret = "rewear-development-secret"
	}

	SessionTTL = 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			log.Printf("Invalid SESSION_TTL %q, using %s", raw, SessionTTL)
		} else {
			SessionTTL = ttl
		}
	}

	SessionSweepSchedule = os.Getenv("SESSION_SWEEP_SCHEDULE")
	if SessionSweepSchedule == "" {
		SessionSweepSchedule = "@every 10m"
	}

	SeedDemoData = true
	if raw := os.Getenv("SEED_DEMO_DATA"); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			log.Printf("Invalid SEED_DEMO_DATA %q, seeding demo data", raw)
		} else {
			SeedDemoData = seed
		}
	}
}
