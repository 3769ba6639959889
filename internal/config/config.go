package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort           string
	AppEnv            string
	JWTSecret         string
	AdminPasswordHash string
	StoreSeedFile     string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:           os.Getenv("APP_PORT"),
		AppEnv:            os.Getenv("APP_ENV"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		StoreSeedFile:     os.Getenv("STORE_SEED_FILE"),
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.JWTSecret == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
