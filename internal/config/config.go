package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	PublicURL  string
	CORSOrigin string

	AdminEmail string

	// Identity provider assertion verification
	ProviderSecret string

	// Registry persistence. File storage is the default; Redis or Postgres
	// take over when their URL is set (Postgres wins if both are).
	DataDir     string
	RedisURL    string
	DatabaseURL string

	// Attachment storage. Disk by default, MinIO when an endpoint is set.
	UploadDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// SMTP - empty by default, notification emails disabled if not configured
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	AdminPageURL string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":3000"),
		PublicURL:  getenv("SERVER_PUBLIC_URL", "http://localhost:3000"),
		CORSOrigin: getenv("FRONTEND_ORIGIN", "*"),

		AdminEmail: getenv("ADMIN_EMAIL", ""),

		ProviderSecret: getenv("CHAVOSH_PROVIDER_SECRET", "chavosh-dev-secret"),

		DataDir:     getenv("CHAVOSH_DATA_DIR", "./data"),
		RedisURL:    getenv("REDIS_URL", ""),
		DatabaseURL: getenv("DATABASE_URL", ""),

		UploadDir:      getenv("CHAVOSH_UPLOAD_DIR", "./uploads"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "chavosh-uploads"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Chavosh Admin"),
		AdminPageURL: getenv("CHAVOSH_ADMIN_PAGE_URL", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
