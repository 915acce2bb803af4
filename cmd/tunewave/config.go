package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tunewave/tunewave/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultProviderAddr = "http://localhost:3000"
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key used for signing JWT access tokens
	SecretKey string

	// Music generation provider to submit jobs to
	ProviderAddr   string
	ProviderAPIKey string

	// Public URL the provider posts status callbacks to
	CallbackURL string

	// Shared secret the provider must echo in callback requests
	// Empty disables the check
	CallbackToken string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		ListenAddr:   defaultListenAddr,
		ProviderAddr: defaultProviderAddr,
		Environment:  defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"SECRET_KEY":       setString(&c.SecretKey),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"PROVIDER_ADDRESS": setString(&c.ProviderAddr),
		"PROVIDER_API_KEY": setString(&c.ProviderAPIKey),
		"CALLBACK_URL":     setString(&c.CallbackURL),
		"CALLBACK_TOKEN":   setString(&c.CallbackToken),
		"ENVIRONMENT":      setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("tunewave", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.ProviderAddr, "provider", "p", c.ProviderAddr, "Generation provider address")
	fs.StringVar(&c.ProviderAPIKey, "provider-key", c.ProviderAPIKey, "Generation provider API key")
	fs.StringVar(&c.CallbackURL, "callback-url", c.CallbackURL, "Public URL for provider callbacks")
	fs.StringVar(&c.CallbackToken, "callback-token", c.CallbackToken, "Shared secret for provider callbacks")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
