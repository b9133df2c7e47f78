package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int
	RedisURL    string

	KafkaBrokers         []string
	TopicFundsReleased   string
	TopicFundsRefunded   string
	TopicDisputeResolved string
	AnalyticsTopic       string
	DLQTopic             string

	LedgerGRPCURL string

	JWTSecret     string
	AdminSubjects []string

	FeeRateBps         int64
	MinEscrowAmount    int64
	MaxDeadlineHorizon int64
	GracePeriod        int64
	AllowedAssets      []string
	CustodyAccount     string
	FeeTreasuryAccount string

	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type configFile struct {
	Service struct {
		Name     string `yaml:"name"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL          string   `yaml:"database_url"`
		MaxDBConns           int      `yaml:"max_db_conns"`
		RedisURL             string   `yaml:"redis_url"`
		KafkaBrokers         []string `yaml:"kafka_brokers"`
		LedgerGRPCURL        string   `yaml:"ledger_grpc_url"`
		TopicFundsReleased   string   `yaml:"topic_funds_released"`
		TopicFundsRefunded   string   `yaml:"topic_funds_refunded"`
		TopicDisputeResolved string   `yaml:"topic_dispute_resolved"`
		AnalyticsTopic       string   `yaml:"topic_analytics"`
		TopicDLQ             string   `yaml:"topic_dlq"`
	} `yaml:"dependencies"`
	Security struct {
		JWTSecret     string   `yaml:"jwt_secret"`
		AdminSubjects []string `yaml:"admin_subjects"`
	} `yaml:"security"`
	Escrow struct {
		FeeRateBps         int64    `yaml:"fee_rate_bps"`
		MinEscrowAmount    int64    `yaml:"min_escrow_amount"`
		MaxDeadlineHorizon int64    `yaml:"max_deadline_horizon"`
		GracePeriod        int64    `yaml:"grace_period"`
		AllowedAssets      []string `yaml:"allowed_assets"`
		CustodyAccount     string   `yaml:"custody_account"`
		FeeTreasuryAccount string   `yaml:"fee_treasury_account"`
	} `yaml:"escrow"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceName:          "Escrow-Settlement-Service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		MaxDBConns:           10,
		TopicFundsReleased:   "escrow.funds_released",
		TopicFundsRefunded:   "escrow.funds_refunded",
		TopicDisputeResolved: "escrow.dispute_resolved",
		AnalyticsTopic:       "escrow.analytics",
		DLQTopic:             "escrow-settlement-service.dlq",
		FeeRateBps:           250,
		MinEscrowAmount:      1,
		MaxDeadlineHorizon:   1_000_000,
		GracePeriod:          100,
		AllowedAssets:        []string{"USD"},
		CustodyAccount:       "escrow_custody",
		FeeTreasuryAccount:   "fee_treasury",
		IdempotencyTTL:       7 * 24 * time.Hour,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.Name != "" {
			cfg.ServiceName = f.Service.Name
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = f.Dependencies.MaxDBConns
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		cfg.LedgerGRPCURL = f.Dependencies.LedgerGRPCURL
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.TopicFundsReleased != "" {
			cfg.TopicFundsReleased = f.Dependencies.TopicFundsReleased
		}
		if f.Dependencies.TopicFundsRefunded != "" {
			cfg.TopicFundsRefunded = f.Dependencies.TopicFundsRefunded
		}
		if f.Dependencies.TopicDisputeResolved != "" {
			cfg.TopicDisputeResolved = f.Dependencies.TopicDisputeResolved
		}
		if f.Dependencies.AnalyticsTopic != "" {
			cfg.AnalyticsTopic = f.Dependencies.AnalyticsTopic
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.DLQTopic = f.Dependencies.TopicDLQ
		}
		cfg.JWTSecret = f.Security.JWTSecret
		if len(f.Security.AdminSubjects) > 0 {
			cfg.AdminSubjects = trimNonEmpty(f.Security.AdminSubjects)
		}
		if f.Escrow.FeeRateBps > 0 {
			cfg.FeeRateBps = f.Escrow.FeeRateBps
		}
		if f.Escrow.MinEscrowAmount > 0 {
			cfg.MinEscrowAmount = f.Escrow.MinEscrowAmount
		}
		if f.Escrow.MaxDeadlineHorizon > 0 {
			cfg.MaxDeadlineHorizon = f.Escrow.MaxDeadlineHorizon
		}
		if f.Escrow.GracePeriod > 0 {
			cfg.GracePeriod = f.Escrow.GracePeriod
		}
		if len(f.Escrow.AllowedAssets) > 0 {
			cfg.AllowedAssets = trimNonEmpty(f.Escrow.AllowedAssets)
		}
		if f.Escrow.CustodyAccount != "" {
			cfg.CustodyAccount = f.Escrow.CustodyAccount
		}
		if f.Escrow.FeeTreasuryAccount != "" {
			cfg.FeeTreasuryAccount = f.Escrow.FeeTreasuryAccount
		}
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.LedgerGRPCURL = envOrDefault("LEDGER_GRPC_URL", cfg.LedgerGRPCURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.TopicFundsReleased = envOrDefault("KAFKA_TOPIC_FUNDS_RELEASED", cfg.TopicFundsReleased)
	cfg.TopicFundsRefunded = envOrDefault("KAFKA_TOPIC_FUNDS_REFUNDED", cfg.TopicFundsRefunded)
	cfg.TopicDisputeResolved = envOrDefault("KAFKA_TOPIC_DISPUTE_RESOLVED", cfg.TopicDisputeResolved)
	cfg.AnalyticsTopic = envOrDefault("KAFKA_TOPIC_ANALYTICS", cfg.AnalyticsTopic)
	cfg.DLQTopic = envOrDefault("KAFKA_TOPIC_DLQ", cfg.DLQTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AdminSubjects = envCSV("ADMIN_SUBJECTS", cfg.AdminSubjects)
	cfg.AllowedAssets = envCSV("ALLOWED_ASSETS", cfg.AllowedAssets)
	cfg.CustodyAccount = envOrDefault("CUSTODY_ACCOUNT", cfg.CustodyAccount)
	cfg.FeeTreasuryAccount = envOrDefault("FEE_TREASURY_ACCOUNT", cfg.FeeTreasuryAccount)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = envInt("MAX_DB_CONNS", cfg.MaxDBConns)
	cfg.FeeRateBps = envInt64("FEE_RATE_BPS", cfg.FeeRateBps)
	cfg.MinEscrowAmount = envInt64("MIN_ESCROW_AMOUNT", cfg.MinEscrowAmount)
	cfg.MaxDeadlineHorizon = envInt64("MAX_DEADLINE_HORIZON", cfg.MaxDeadlineHorizon)
	cfg.GracePeriod = envInt64("GRACE_PERIOD", cfg.GracePeriod)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt64(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
