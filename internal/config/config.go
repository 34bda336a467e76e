// Package config loads the server configuration.
//
// PRECEDENCE (lowest to highest):
//  1. Defaults in defaultConfig()
//  2. A YAML file: $CONFIG_PATH, else config.yaml / config.yml in the working dir
//  3. Environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// cmd/server loads a .env file into the environment before calling Load, so
// local development can keep secrets out of the shell history.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	GitHub    GitHubConfig    `koanf:"github"`
	Storage   StorageConfig   `koanf:"storage"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" for a throwaway database.
	Path string `koanf:"path" validate:"required"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gte=0"`
	// CookieSecure marks the token cookie Secure. Turn off only for plain
	// HTTP on localhost.
	CookieSecure bool `koanf:"cookie_secure"`
}

// GitHubConfig enables GitHub sign-in when ClientID is set.
type GitHubConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret" validate:"required_with=ClientID"`
	CallbackURL  string `koanf:"callback_url" validate:"omitempty,url"`
	// SuccessURL is where the browser lands after a successful sign-in.
	SuccessURL string `koanf:"success_url"`
}

// StorageConfig enables image uploads when Bucket is set.
type StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required_with=AccessKeyID"`
	PublicBaseURL   string `koanf:"public_base_url" validate:"omitempty,url"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Window  time.Duration `koanf:"window" validate:"gt=0"`
	// Requests per window per client IP on the whole API.
	Requests int `koanf:"requests" validate:"gt=0"`
	// AuthRequests is the tighter limit on login and register.
	AuthRequests int `koanf:"auth_requests" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool { return g.ClientID != "" }

// Enabled reports whether image uploads are configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/recipe-room.db",
		},
		Auth: AuthConfig{
			TokenTTL:     24 * time.Hour,
			CookieSecure: true,
		},
		GitHub: GitHubConfig{
			CallbackURL: "http://localhost:8080/api/auth/github/callback",
			SuccessURL:  "/",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Window:       time.Minute,
			Requests:     300,
			AuthRequests: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the loaded values with the struct tags above.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
