// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath      = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers  = []string{"sqlite", "postgres"}
	validProviders  = []string{"google", "github"}
	ErrMissingFile  = errors.New("config.toml file is missing")
	ErrInvalidLevel = errors.New("invalid log level provided")
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return ErrMissingFile
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	return Validate()
}

func bindEnvs() {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.base_url", "host_base_url", "render_external_url")
	v.BindEnv("host.frontend_url", "host_frontend_url")
	v.BindEnv("host.cors", "host_cors")
	v.BindEnv("host.trusted_proxies", "host_trusted_proxies")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn", "database_url")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username", "email_address")
	v.BindEnv("mail.password", "mail_password", "email_password")
	v.BindEnv("mail.sender", "mail_sender")
	v.BindEnv("mail.workers", "mail_workers")

	v.BindEnv("oauth.google.client_id", "google_client_id")
	v.BindEnv("oauth.google.client_secret", "google_client_secret")
	v.BindEnv("oauth.github.client_id", "github_client_id")
	v.BindEnv("oauth.github.client_secret", "github_client_secret")
	v.BindEnv("oauth.link_by_email", "oauth_link_by_email")
	v.BindEnv("oauth.timeout", "oauth_timeout")

	v.BindEnv("gemini.api_key", "gemini_api_key")
	v.BindEnv("gemini.model", "gemini_model")
	v.BindEnv("chat.timeout", "chat_timeout")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("cloudflare.turnstile.enabled", "cloudflare_turnstile_enabled")
	v.BindEnv("cloudflare.turnstile.secret_token", "cloudflare_turnstile_secret_token")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8000)
	v.SetDefault("host.base_url", "http://localhost:8000")
	v.SetDefault("host.frontend_url", "")
	v.SetDefault("host.cors", []string{"*"})
	v.SetDefault("host.trusted_proxies", []string{})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "users.db")

	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.sender", "noreply@career.local")
	v.SetDefault("mail.workers", 2)

	v.SetDefault("oauth.link_by_email", true)
	v.SetDefault("oauth.timeout", 10*time.Second)

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("chat.timeout", 30*time.Second)

	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("cloudflare.turnstile.enabled", false)
}

// Validate checks the values currently loaded into viper. It's split from
// Setup so that tests can load values without a config file.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return ErrInvalidLevel
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if len(v.GetStringSlice("host.trusted_proxies")) == 0 {
		zap.L().Info("No host.trusted_proxies set, X-Forwarded-For is ignored and sessions bind to the connecting address")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("no database dsn provided")
	}

	if v.GetInt("mail.workers") <= 0 {
		return errors.New("mail.workers must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	for _, p := range validProviders {
		id := v.GetString("oauth." + p + ".client_id")
		secret := v.GetString("oauth." + p + ".client_secret")

		if (id == "") != (secret == "") {
			return fmt.Errorf("oauth.%s needs both client_id and client_secret", p)
		}

		if id == "" {
			zap.L().Warn("OAuth provider not configured, its login route will be disabled", zap.String("provider", p))
		}
	}

	if v.GetDuration("oauth.timeout") <= 0 {
		return errors.New("oauth.timeout must be bigger than 0")
	}

	if v.GetDuration("chat.timeout") <= 0 {
		return errors.New("chat.timeout must be bigger than 0")
	}

	if v.GetString("gemini.api_key") == "" {
		zap.L().Warn("No gemini.api_key set, the chat assistant will only use canned replies")
	}

	if v.GetString("mail.username") == "" || v.GetString("mail.password") == "" {
		zap.L().Warn("Mail credentials missing, verification codes will fail to send")
	}

	if v.GetString("redis.addr") == "" {
		zap.L().Warn("No redis.addr set, one-time codes and OAuth states are kept in process memory. Don't run more than one instance")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Register and login won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	return nil
}
