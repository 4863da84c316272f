package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisURL      string
	JWTSecret     string
	CloudinaryURL string
	UploadDir     string
	PublicBaseURL string
}

func Load() *Config {
	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "lynkr"),
		DBPassword:    getEnv("DB_PASSWORD", "lynkr_dev_password"),
		DBName:        getEnv("DB_NAME", "lynkr"),
		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
