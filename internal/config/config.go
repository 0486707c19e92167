package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
)

type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string

	Eclipse        eclipse.Config
	TenantWalletID string

	RedisAddr         string
	KafkaBrokers      []string
	NotificationTopic string

	ReconcileWindow time.Duration

	MinTipAmount        float64
	MaxTipAmount        float64
	MinWithdrawalAmount float64
	MaxWithdrawalAmount float64
	TipPaymentType      string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGO_DATABASE", "guardtipdb")
	v.SetDefault("ECLIPSE_TIMEOUT_SECONDS", 10)
	v.SetDefault("NOTIFICATION_TOPIC", "payment.received")
	v.SetDefault("RECONCILE_WINDOW_DAYS", 7)
	v.SetDefault("MIN_TIP_AMOUNT", 5)
	v.SetDefault("MAX_TIP_AMOUNT", 5000)
	v.SetDefault("MIN_WITHDRAWAL_AMOUNT", 10)
	v.SetDefault("MAX_WITHDRAWAL_AMOUNT", 5000)
	v.SetDefault("TIP_PAYMENT_TYPE", "LINK")
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		logrus.Warnf("Warning: Error loading .env: %s", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return v
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:          v.GetString("PORT"),
		MongoURI:      v.GetString("MONGOURI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		Eclipse: eclipse.Config{
			BaseURL:       v.GetString("ECLIPSE_BASE_URL"),
			TenantID:      v.GetString("ECLIPSE_TENANT_ID"),
			ClientID:      v.GetString("ECLIPSE_CLIENT_ID"),
			ClientSecret:  v.GetString("ECLIPSE_CLIENT_SECRET"),
			TokenURL:      v.GetString("ECLIPSE_TOKEN_URL"),
			Username:      v.GetString("ECLIPSE_USERNAME"),
			Password:      v.GetString("ECLIPSE_PASSWORD"),
			WebhookSecret: v.GetString("ECLIPSE_WEBHOOK_SECRET"),
			Timeout:       time.Duration(v.GetInt("ECLIPSE_TIMEOUT_SECONDS")) * time.Second,
		},
		TenantWalletID:      v.GetString("TENANT_WALLET_ID"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		KafkaBrokers:        splitList(v.GetString("KAFKA_BROKERS")),
		NotificationTopic:   v.GetString("NOTIFICATION_TOPIC"),
		ReconcileWindow:     time.Duration(v.GetInt("RECONCILE_WINDOW_DAYS")) * 24 * time.Hour,
		MinTipAmount:        v.GetFloat64("MIN_TIP_AMOUNT"),
		MaxTipAmount:        v.GetFloat64("MAX_TIP_AMOUNT"),
		MinWithdrawalAmount: v.GetFloat64("MIN_WITHDRAWAL_AMOUNT"),
		MaxWithdrawalAmount: v.GetFloat64("MAX_WITHDRAWAL_AMOUNT"),
		TipPaymentType:      strings.ToUpper(v.GetString("TIP_PAYMENT_TYPE")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
