package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	AuthJWTSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	WeChatPay WeChatPayConfig
}

// WeChatPayConfig carries the merchant credentials for the WeChat Pay v3 channel.
type WeChatPayConfig struct {
	AppID           string
	MchID           string
	MchCertSerialNo string
	APIv3Key        string
	PrivateKeyPEM   string
	PlatformCertPEM string
	NotifyURL       string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "platform"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "platform"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		WeChatPay: WeChatPayConfig{
			AppID:           strings.TrimSpace(getenv("WECHAT_PAY_APP_ID", "")),
			MchID:           strings.TrimSpace(getenv("WECHAT_PAY_MCH_ID", "")),
			MchCertSerialNo: strings.TrimSpace(getenv("WECHAT_PAY_MCH_CERT_SERIAL_NO", "")),
			APIv3Key:        strings.TrimSpace(getenv("WECHAT_PAY_APIV3_KEY", "")),
			PrivateKeyPEM:   readPEM("WECHAT_PAY_PRIVATE_KEY"),
			PlatformCertPEM: readPEM("WECHAT_PAY_PLATFORM_CERT"),
			NotifyURL:       strings.TrimSpace(getenv("WECHAT_PAY_NOTIFY_URL", "")),
		},
	}

	return cfg
}

// readPEM accepts either inline PEM content or a path to a PEM file.
func readPEM(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "-----BEGIN") {
		return value
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return ""
	}
	return string(data)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
