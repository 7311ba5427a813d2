package serve

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bibbank/approval/pkg/approval/model"
	pkgkafka "github.com/bibbank/approval/pkg/kafka"
)

// Defaults are the per-service values used when a variable is unset.
type Defaults struct {
	HTTPPort       string
	GRPCPort       string
	OnMissingModel model.MissingModelPolicy
	KafkaTopic     string
}

// FromEnv reads the service configuration from environment variables.
func FromEnv(d Defaults) (Config, error) {
	policy, err := model.ParsePolicy(getEnv("ON_MISSING_MODEL", string(d.OnMissingModel)))
	if err != nil {
		return Config{}, fmt.Errorf("ON_MISSING_MODEL: %w", err)
	}

	kafkaCfg := pkgkafka.Config{
		Brokers:       pkgkafka.ParseBrokers(getEnv("KAFKA_BROKERS", "")),
		ClientID:      getEnv("KAFKA_CLIENT_ID", "approval"),
		TLS:           getEnvBool("KAFKA_TLS", false),
		SASLEnabled:   getEnvBool("KAFKA_SASL_ENABLED", false),
		SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
		SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
		SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
	}

	httpPort := getEnv("PORT", d.HTTPPort)
	if httpPort == "" {
		httpPort = d.HTTPPort
	}

	return Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		HTTPPort:        httpPort,
		GRPCPort:        getEnv("GRPC_PORT", d.GRPCPort),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		PredictTimeout:  getEnvDuration("PREDICT_TIMEOUT", 2*time.Second),
		OnMissingModel:  policy,
		RulesFile:       getEnv("RULES_FILE", ""),
		StaticDir:       getEnv("STATIC_DIR", "static"),
		Kafka:           kafkaCfg,
		KafkaTopic:      getEnv("KAFKA_TOPIC", d.KafkaTopic),
		EventBuffer:     getEnvInt("EVENT_BUFFER", defaultEventBuffer),
		EventTimeout:    getEnvDuration("EVENT_TIMEOUT", defaultEventTimeout),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		GRPCTLSCertFile: getEnv("GRPC_TLS_CERT_FILE", ""),
		GRPCTLSKeyFile:  getEnv("GRPC_TLS_KEY_FILE", ""),
		GRPCReflection:  getEnvBool("GRPC_REFLECTION", false),
	}, nil
}

// getEnv returns the variable's value, or fallback when it is unset.
// A variable set to the empty string is kept, so GRPC_PORT= disables gRPC.
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("2s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
