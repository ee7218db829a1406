package config

import "os"

type Config struct {
	Port             string
	DatabaseURL      string
	RedisHost        string
	RedisPort        string
	JaegerAddress    string
	SMTPServer       string
	SMTPPort         string
	SMTPEmail        string
	SMTPPassword     string
	TelegramBotToken string
}

func NewConfig() *Config {
	return &Config{
		Port:             os.Getenv("BOOKING_SERVICE_PORT"),
		DatabaseURL:      os.Getenv("BOOKING_DATABASE_URL"),
		RedisHost:        os.Getenv("BOOKING_CACHE_HOST"),
		RedisPort:        os.Getenv("BOOKING_CACHE_PORT"),
		JaegerAddress:    os.Getenv("JAEGER_ADDRESS"),
		SMTPServer:       os.Getenv("SMTP_SERVER"),
		SMTPPort:         os.Getenv("SMTP_AUTH_PORT"),
		SMTPEmail:        os.Getenv("SMTP_AUTH_MAIL"),
		SMTPPassword:     os.Getenv("SMTP_AUTH_PASSWORD"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}
