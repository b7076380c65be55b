package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the environment-driven configuration of the chat core.
type Config struct {
	DatabaseURL         string
	DefaultHost         string
	DefaultPort         string
	PublicHost          string
	RealtimePort        string
	EnableEncryption    bool
	EncryptionMasterKey string
	SessionTTL          time.Duration
	MaxMessageLength    int
	TLSCertPath         string
	TLSKeyPath          string
	RedisURL            string
}

// Load reads configuration from the environment, applying defaults for
// every variable that is unset.
func Load() *Config {
	port := getEnv("DEFAULT_PORT", "5000")

	return &Config{
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://chatcore.db"),
		DefaultHost:         getEnv("DEFAULT_HOST", "0.0.0.0"),
		DefaultPort:         port,
		PublicHost:          getEnv("PUBLIC_HOST", "localhost"),
		RealtimePort:        getEnv("REALTIME_PORT", nextPort(port)),
		EnableEncryption:    getBool("ENABLE_ENCRYPTION", false),
		EncryptionMasterKey: getEnv("ENCRYPTION_MASTER_KEY", ""),
		SessionTTL:          time.Duration(getInt("SESSION_TTL_SECONDS", 3600)) * time.Second,
		MaxMessageLength:    getInt("MAX_MESSAGE_LENGTH", 4096),
		TLSCertPath:         getEnv("TLS_CERT_PATH", ""),
		TLSKeyPath:          getEnv("TLS_KEY_PATH", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
	}
}

// nextPort is used only as the default for REALTIME_PORT when it is
// not set explicitly: the auxiliary WebSocket server binds one port
// above the line-protocol TCP port.
func nextPort(portStr string) string {
	n, err := strconv.Atoi(portStr)
	if err != nil {
		return "5001"
	}
	return strconv.Itoa(n + 1)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return b
}
