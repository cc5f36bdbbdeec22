package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	ClientURL          string `envconfig:"CLIENT_URL" default:"http://localhost:3000"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	// Premium is a single fixed-price one-time purchase
	PremiumPriceCents int64  `envconfig:"PREMIUM_PRICE_CENTS" default:"990"`
	PremiumCurrency   string `envconfig:"PREMIUM_CURRENCY" default:"usd"`
	PremiumProduct    string `envconfig:"PREMIUM_PRODUCT" default:"LessonHub Premium"`

	// Redis cache settings; caching is disabled when REDIS_ADDR is empty
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// S3-compatible storage for avatars and lesson thumbnails
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Moderation event settings; publishing is disabled when GCP_PROJECT_ID is empty
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	ModerationTopicName string `envconfig:"MODERATION_TOPIC_NAME" default:"moderation_events"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
