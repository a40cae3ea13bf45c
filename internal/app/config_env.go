package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "GOTABULAR_"

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.Proxy, "PROXY")
	setString(&cfg.OutputFormat, "OUTPUT_FORMAT")
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.MissingMarker, "NA")
	setString(&cfg.OutputDatabase.File, "DB_FILE")
	setString(&cfg.OutputDatabase.URL, "DB_URL")
	setString(&cfg.OutputDatabase.AuthToken, "DB_AUTH_TOKEN")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.MongoCollection, "MONGO_COLLECTION")

	if cfg.Concurrency == 0 {
		if n, err := strconv.Atoi(getenv("CONCURRENCY")); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if cfg.Timeout == 0 {
		if d, err := time.ParseDuration(getenv("TIMEOUT")); err == nil {
			cfg.Timeout = d
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		switch strings.ToLower(getenv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// a config file while flags, applied afterwards, stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.Proxy, "PROXY")
	setString(&cfg.OutputFormat, "OUTPUT_FORMAT")
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.MissingMarker, "NA")
	setString(&cfg.OutputDatabase.File, "DB_FILE")
	setString(&cfg.OutputDatabase.URL, "DB_URL")
	setString(&cfg.OutputDatabase.AuthToken, "DB_AUTH_TOKEN")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.MongoCollection, "MONGO_COLLECTION")

	if n, err := strconv.Atoi(getenv("CONCURRENCY")); err == nil && n > 0 {
		cfg.Concurrency = n
	}
	if d, err := time.ParseDuration(getenv("TIMEOUT")); err == nil {
		cfg.Timeout = d
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(getenv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
}
