package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

// envMappings maps environment variables to koanf paths. Variables not
// listed are ignored, so unrelated environment never leaks into Config.
var envMappings = map[string]string{
	"HOST":             "server.host",
	"PORT":             "server.port",
	"READ_TIMEOUT":     "server.read_timeout",
	"WRITE_TIMEOUT":    "server.write_timeout",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",

	"DB_PATH": "database.path",

	"JWT_SECRET":    "auth.jwt_secret",
	"TOKEN_TTL":     "auth.token_ttl",
	"COOKIE_SECURE": "auth.cookie_secure",

	"GITHUB_CLIENT_ID":     "github.client_id",
	"GITHUB_CLIENT_SECRET": "github.client_secret",
	"GITHUB_CALLBACK_URL":  "github.callback_url",
	"GITHUB_SUCCESS_URL":   "github.success_url",

	"S3_BUCKET":            "storage.bucket",
	"S3_REGION":            "storage.region",
	"S3_ENDPOINT":          "storage.endpoint",
	"S3_ACCESS_KEY_ID":     "storage.access_key_id",
	"S3_SECRET_ACCESS_KEY": "storage.secret_access_key",
	"S3_PUBLIC_BASE_URL":   "storage.public_base_url",

	"CORS_ALLOWED_ORIGINS": "cors.allowed_origins",

	"RATE_LIMIT_ENABLED":       "rate_limit.enabled",
	"RATE_LIMIT_WINDOW":        "rate_limit.window",
	"RATE_LIMIT_REQUESTS":      "rate_limit.requests",
	"RATE_LIMIT_AUTH_REQUESTS": "rate_limit.auth_requests",

	"LOG_LEVEL":  "log.level",
	"LOG_FORMAT": "log.format",
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{"cors.allowed_origins"}

// Load builds the Config from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey returns "" for unmapped variables, which koanf skips.
func envKey(key string) string {
	return envMappings[key]
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("config: setting %s: %w", path, err)
		}
	}
	return nil
}
