package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	StoreBackend    string
	DB              Database
	JWTSecret       string

	// Scoring and progression
	XPPerCorrect       int
	RankTable          string // "Name:minXP,Name:minXP,..."
	ResubmissionPolicy string

	// Analytics
	HardestMinSamples     int
	NotificationScanLimit int

	// Integrity audit; zero disables the scheduled job.
	AuditInterval time.Duration

	// Optional JSON question catalog imported at startup.
	QuestionsFile string
}

const DefaultRankTable = "Recruit:0,Sergeant:100,Lieutenant:250,Captain:500,Major:1000,Colonel:2500,General:5000"

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using environment variables")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		StoreBackend: getEnv("STORE_BACKEND", BackendPostgres),
		DB: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "patente_user"),
			Password: getEnv("DB_PASSWORD", "patente_password"),
			Name:     getEnv("DB_NAME", "patente"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWTSecret:          getEnv("JWT_SECRET", ""),
		RankTable:          getEnv("RANK_TABLE", DefaultRankTable),
		ResubmissionPolicy: getEnv("RESUBMISSION_POLICY", "repeat"),
		QuestionsFile:      getEnv("QUESTIONS_FILE", ""),
	}

	var err error
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuditInterval, err = getDuration("AUDIT_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.XPPerCorrect, err = getPositiveInt("XP_PER_CORRECT", 10); err != nil {
		return nil, err
	}
	if cfg.HardestMinSamples, err = getPositiveInt("HARDEST_MIN_SAMPLES", 5); err != nil {
		return nil, err
	}
	if cfg.NotificationScanLimit, err = getPositiveInt("NOTIFICATION_SCAN_LIMIT", 200); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("config: STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StoreBackend)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid duration: %w", key, v, err)
	}
	return d, nil
}

func getPositiveInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s=%q must be a positive integer", key, v)
	}
	return n, nil
}
