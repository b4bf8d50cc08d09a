package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	APIKey string

	SigningKeyID             string
	SigningPrivateKeyBase64  string
	SigningPrivateKeySeedHex string

	PolicyBundlePath string

	DelegationMaxDepth   int
	TokenValiditySeconds int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		APIKey:                   os.Getenv("API_KEY"),
		SigningKeyID:             envDefault("SIGNING_KEY_ID", "intentd-signing-1"),
		SigningPrivateKeyBase64:  os.Getenv("SIGNING_PRIVATE_KEY_BASE64"),
		SigningPrivateKeySeedHex: os.Getenv("SIGNING_PRIVATE_KEY_SEED_HEX"),
		PolicyBundlePath:         os.Getenv("POLICY_BUNDLE_PATH"),
		DelegationMaxDepth:       envIntDefault("DELEGATION_MAX_DEPTH", 5),
		TokenValiditySeconds:     envIntDefault("TOKEN_VALIDITY_SECONDS", 300),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) TokenValidity() time.Duration {
	if c.TokenValiditySeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TokenValiditySeconds) * time.Second
}
