package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	HTTPAddr        string
	PostgresDSN     string // kosong -> in-memory store
	RedisAddr       string // kosong -> idempotency & dedup off
	KafkaBrokers    []string
	ServiceName     string
	LogLevel        string
	LogFormat       string
	JWTSecret       string
	CORSOrigins     []string
	NotifyMode      string // inline | kafka
	NotifierGroup   string
	NotifierWorkers int
	ShutdownTimeout time.Duration
	TxMaxAttempts   int
	ReportTZ        string

	ExpectedLeadTime   time.Duration
	ReliabilityWeight  float64
	LatePenaltyPerDay  float64
	InitialReliability float64
}

const (
	NotifyInline = "inline"
	NotifyKafka  = "kafka"
)

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8081"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		ServiceName:     getenv("SERVICE_NAME", "retail-api"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		JWTSecret:       getenv("JWT_SECRET", "dev_secret"),
		CORSOrigins:     splitCSV(getenv("CORS_ORIGINS", "http://localhost:3000")),
		NotifyMode:      strings.ToLower(getenv("NOTIFY_MODE", NotifyInline)),
		NotifierGroup:   getenv("NOTIFIER_GROUP", "notifier-svc"),
		NotifierWorkers: atoienv("NOTIFIER_WORKERS", 4),
		ShutdownTimeout: durenv("SHUTDOWN_TIMEOUT", 5*time.Second),
		TxMaxAttempts:   atoienv("TX_MAX_ATTEMPTS", 3),
		ReportTZ:        getenv("REPORT_TZ", "UTC"),

		ExpectedLeadTime:   durenv("PO_EXPECTED_LEAD_TIME", 7*24*time.Hour),
		ReliabilityWeight:  floatenv("RELIABILITY_WEIGHT", 0.2),
		LatePenaltyPerDay:  floatenv("RELIABILITY_LATE_PENALTY", 10),
		InitialReliability: floatenv("INITIAL_RELIABILITY", 100),
	}
}

// Location resolves ReportTZ, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoienv(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return n
}

func floatenv(k string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(k, ""), 64)
	if err != nil {
		return def
	}
	return f
}

// durenv accepts Go durations ("36h") and bare seconds ("3600").
func durenv(k string, def time.Duration) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
