package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	Blob     BlobConfig
	Notify   NotifyConfig
	Receipt  ReceiptConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
	// Revocation keeps logged-out tokens in Redis until they expire.
	RevocationEnabled bool
}

type PaymentConfig struct {
	Provider          string
	PaystackSecretKey string
	PaystackBaseURL   string
	StripeSecretKey   string
	Timeout           time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	// AutoMigrate applies pending migrations at startup.
	AutoMigrate  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderSettled string
	AdCreated    string
	AdActivated  string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	DialTimeout  time.Duration
}

type BlobConfig struct {
	UploadURL string
	APIKey    string
	Folder    string
	Timeout   time.Duration
}

type NotifyConfig struct {
	Timeout time.Duration
	Enabled bool
}

type ReceiptConfig struct {
	Secret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", ":8080"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenTTL:          getEnvDuration("TOKEN_TTL", 24*time.Hour),
			CookieSecure:      getEnvBool("COOKIE_SECURE", true),
			RevocationEnabled: getEnvBool("TOKEN_REVOCATION_ENABLED", false),
		},
		Payment: PaymentConfig{
			Provider:          strings.ToLower(getEnv("PAYMENT_PROVIDER", "paystack")),
			PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
			Timeout:           getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "marketplace"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "marketplace"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderSettled: getEnv("KAFKA_TOPIC_ORDER_SETTLED", "marketplace.order.settled"),
				AdCreated:    getEnv("KAFKA_TOPIC_AD_CREATED", "marketplace.ad.created"),
				AdActivated:  getEnv("KAFKA_TOPIC_AD_ACTIVATED", "marketplace.ad.activated"),
			},
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", "Neighborly <no-reply@neighborly.local>"),
			DialTimeout:  getEnvDuration("SMTP_DIAL_TIMEOUT", 10*time.Second),
		},
		Blob: BlobConfig{
			UploadURL: getEnv("BLOB_UPLOAD_URL", ""),
			APIKey:    getEnv("BLOB_API_KEY", ""),
			Folder:    getEnv("BLOB_FOLDER", "marketplace"),
			Timeout:   getEnvDuration("BLOB_TIMEOUT", 30*time.Second),
		},
		Notify: NotifyConfig{
			Timeout: getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
			Enabled: getEnvBool("NOTIFY_ENABLED", true),
		},
		Receipt: ReceiptConfig{
			Secret: getEnv("RECEIPT_SECRET", getEnv("JWT_SECRET", "")),
		},
	}
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.Username + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
