// Package config содержит логику чтения конфигурации сервиса пекарни.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса пекарни.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	BankGatewayAddress string `env:"BANK_GATEWAY_ADDRESS"`
	AuthSecret         string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envBankAddress := cfg.BankGatewayAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BankGatewayAddress, "b", "", "bank gateway address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBankAddress != "" {
		cfg.BankGatewayAddress = envBankAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "bakeshop-secret"
	}

	return cfg, nil
}
