package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration, sourced from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// Thumbnail storage (S3-compatible endpoint).
	S3Key    string `envconfig:"S3_KEY" required:"true"`
	S3Secret string `envconfig:"S3_SECRET" required:"true"`
	S3URL    string `envconfig:"S3_URL" required:"true"`
	S3Region string `envconfig:"S3_REGION" required:"true"`
	S3Bucket string `envconfig:"S3_BUCKET" required:"true"`

	// Schedule for the catalog metrics refresh job.
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"@every 10m"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
