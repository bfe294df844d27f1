package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	DefaultRevealThreshold  int
	ConsensusMaxDivergence  int
	DiscussionMinDivergence int
	TopFlagLimit            int
	RevealRepeatNoOp        bool
	RevealExposeIdentity    bool
	OutboxBatchSize         int
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "dealdesk"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		DefaultRevealThreshold:  envInt("DEFAULT_REVEAL_THRESHOLD", 3),
		ConsensusMaxDivergence:  envInt("CONSENSUS_MAX_DIVERGENCE", 2),
		DiscussionMinDivergence: envInt("DISCUSSION_MIN_DIVERGENCE", 5),
		TopFlagLimit:            envInt("TOP_FLAG_LIMIT", 5),
		RevealRepeatNoOp:        envBool("REVEAL_REPEAT_NOOP", true),
		RevealExposeIdentity:    envBool("REVEAL_EXPOSE_IDENTITY", true),
		OutboxBatchSize:         envInt("OUTBOX_BATCH_SIZE", 100),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
