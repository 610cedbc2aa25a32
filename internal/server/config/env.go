package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig mirrors Config with environment-variable tags. Variables that
// are not set leave the corresponding field untouched, so the overlay only
// replaces what the environment actually provides.
type EnvConfig struct {
	EndpointAddrHTTP             string        `env:"ADDRESS"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	AccessTokenSecret            string        `env:"JWT_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret           string        `env:"JWT_REFRESH_TOKEN_SECRET"`
	AccessTokenValidityDuration  time.Duration `env:"JWT_ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidityDuration time.Duration `env:"JWT_REFRESH_TOKEN_VALIDITY"`
	PasswordHashCost             int           `env:"PASSWORD_HASH_COST"`
	CookieDomain                 string        `env:"COOKIE_DOMAIN"`
	CookieSecure                 bool          `env:"COOKIE_SECURE"`
	S3AccessKey                  string        `env:"S3_ACCESS_KEY"`
	S3SecretKey                  string        `env:"S3_SECRET_KEY"`
	S3Bucket                     string        `env:"S3_BUCKET"`
	S3Region                     string        `env:"S3_REGION"`
	S3BaseEndpoint               string        `env:"S3_BASE_ENDPOINT"`
}

// parseEnv overlays environment variables onto the provided Config.
// Parsing failures panic, in line with the other config loaders.
func parseEnv(config *Config) {
	c := EnvConfig{
		EndpointAddrHTTP:             config.EndpointAddrHTTP,
		DatabaseDSN:                  config.DatabaseDSN,
		AccessTokenSecret:            config.AccessTokenSecret,
		RefreshTokenSecret:           config.RefreshTokenSecret,
		AccessTokenValidityDuration:  config.AccessTokenValidityDuration,
		RefreshTokenValidityDuration: config.RefreshTokenValidityDuration,
		PasswordHashCost:             config.PasswordHashCost,
		CookieDomain:                 config.CookieDomain,
		CookieSecure:                 config.CookieSecure,
		S3AccessKey:                  config.S3AccessKey,
		S3SecretKey:                  config.S3SecretKey,
		S3Bucket:                     config.S3Bucket,
		S3Region:                     config.S3Region,
		S3BaseEndpoint:               config.S3BaseEndpoint,
	}

	if err := env.Parse(&c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessTokenSecret = c.AccessTokenSecret
	config.RefreshTokenSecret = c.RefreshTokenSecret
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration
	config.PasswordHashCost = c.PasswordHashCost
	config.CookieDomain = c.CookieDomain
	config.CookieSecure = c.CookieSecure
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
