// config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string
	AuthURL     string
	RabbitURL   string
	RedisAddr   string

	Mpesa MpesaConfig

	// Secreto para firmar la URL de callback. Vacío = sin verificación.
	CallbackSecret       string
	CallbackRateLimit    float64
	CallbackRateBurst    int
	// Rangos del proveedor que no pasan por el limitador.
	CallbackTrustedCIDRs []string

	DeliveryFee decimal.Decimal
}

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

func Load() *Config {
	// El .env es opcional; en producción las variables vienen del entorno.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "campus_store"),
		AuthURL:     getEnv("AUTH_URL", "http://host.docker.internal:3000"),
		RabbitURL:   getEnv("RABBIT_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		Mpesa: MpesaConfig{
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			Shortcode:      getEnv("MPESA_SHORTCODE", "174379"),
			Passkey:        getEnv("MPESA_PASSKEY", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", "http://localhost:8080/payments/callback"),
		},
		CallbackSecret:       getEnv("CALLBACK_SECRET", ""),
		CallbackRateLimit:    getEnvFloat("CALLBACK_RATE_LIMIT", 5),
		CallbackRateBurst:    getEnvInt("CALLBACK_RATE_BURST", 10),
		CallbackTrustedCIDRs: getEnvList("MPESA_CALLBACK_CIDRS", []string{"196.201.212.0/22"}),
		DeliveryFee:          getEnvDecimal("DELIVERY_FEE", decimal.NewFromInt(50)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// Lista separada por comas; vacía o sin valores usa el fallback.
func getEnvList(key string, fallback []string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
