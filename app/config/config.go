package config

import (
	"fmt"
	"os"
	"strconv"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB     PostgresConfig
	Github GithubConfig
	Gemini GeminiConfig
	Stripe StripeConfig
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
}

type GithubConfig struct {
	// WebhookSecret signs both the app webhook and the marketplace webhook.
	WebhookSecret string
	AppID         int64
	PrivateKey    string
	BotLogin      string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type StripeConfig struct {
	SecretKey             string
	WebhookSecret         string
	PriceIDStarterMonthly string
	PriceIDProMonthly     string
	FrontendURL           string
}

func LoadConfig() (*Config, error) {
	var appID int64
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
		}
		appID = parsed
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	botLogin := os.Getenv("GITHUB_BOT_LOGIN")
	if botLogin == "" {
		botLogin = "explainthispr[bot]"
	}

	cfg := &Config{
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
		},
		Github: GithubConfig{
			WebhookSecret: os.Getenv("GITHUB_WEBHOOK_SECRET"),
			AppID:         appID,
			PrivateKey:    os.Getenv("GITHUB_PRIVATE_KEY"),
			BotLogin:      botLogin,
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  model,
		},
		Stripe: StripeConfig{
			SecretKey:             os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:         os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDStarterMonthly: os.Getenv("STRIPE_PRICE_ID_STARTER_MONTHLY"),
			PriceIDProMonthly:     os.Getenv("STRIPE_PRICE_ID_PRO_MONTHLY"),
			FrontendURL:           os.Getenv("STRIPE_FRONTEND_URL"),
		},
	}

	return cfg, nil
}
