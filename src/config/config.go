package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type Config struct {
	APIEnv          string
	Port            string
	MaintenanceMode bool
	LogDir          string
	TempDir         string
	JWTSecret       string
	FrontendRoot    string
	AppHost         string
	RedisHost       string
	QRCSecret       string

	Zarinpal ZarinpalConfig
	Payments PaymentsConfig
	Email    EmailConfig
	SMTP     SMTPConfig
	AWS      AWSConfig

	KafkaBroker         string
	FirebaseCredentials string
}

type ZarinpalConfig struct {
	MerchantID       string
	MerchantSecretID string
	Sandbox          bool
	CallbackURL      string
	Timeout          time.Duration
}

type PaymentsConfig struct {
	MinPayableAmount int64
	PendingTTL       time.Duration
	SweepInterval    time.Duration
}

type EmailConfig struct {
	Queue    string
	From     string
	FromName string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type AWSConfig struct {
	Region           string
	AssetsBucket     string
	PaymentsTopicArn string
}

var (
	cfg  *Config
	once sync.Once
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_ENV", "local")
	v.SetDefault("PORT", "8000")
	v.SetDefault("MAINTENANCE_MODE", false)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("TEMP_DIR", os.TempDir())
	v.SetDefault("FRONTEND_ROOT", "http://localhost:3000")
	v.SetDefault("ZARINPAL_SANDBOX", true)
	v.SetDefault("ZARINPAL_CALLBACK_URL", "http://localhost:8000/api/v1/payments/callback")
	v.SetDefault("ZARINPAL_TIMEOUT", 15*time.Second)
	v.SetDefault("MIN_PAYABLE_AMOUNT", 0)
	v.SetDefault("PENDING_PAYMENT_TTL", time.Hour)
	v.SetDefault("PAYMENT_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("EMAIL_QUEUE", "EmailsToSend")
	v.SetDefault("EMAIL_FROM", "no-reply@guilance.ir")
	v.SetDefault("EMAIL_FROM_NAME", "GuilanCE")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("AWS_REGION", "eu-central-1")
}

// Load reads configuration from the environment. A .env file in the working directory is
// loaded first when API_ENV is local.
func Load() *Config {
	if os.Getenv("API_ENV") == "" || os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		_ = godotenv.Load(path.Join(cwd, ".env"))
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		APIEnv:          v.GetString("API_ENV"),
		Port:            v.GetString("PORT"),
		MaintenanceMode: v.GetBool("MAINTENANCE_MODE"),
		LogDir:          v.GetString("LOG_DIR"),
		TempDir:         v.GetString("TEMP_DIR"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		FrontendRoot:    strings.TrimRight(v.GetString("FRONTEND_ROOT"), "/"),
		AppHost:         v.GetString("APP_HOST"),
		RedisHost:       v.GetString("REDIS_HOST"),
		QRCSecret:       v.GetString("API_QRC_SECRET"),
		Zarinpal: ZarinpalConfig{
			MerchantID:       v.GetString("ZARINPAL_MERCHANT_ID"),
			MerchantSecretID: v.GetString("ZARINPAL_MERCHANT_SECRET_ID"),
			Sandbox:          v.GetBool("ZARINPAL_SANDBOX"),
			CallbackURL:      v.GetString("ZARINPAL_CALLBACK_URL"),
			Timeout:          v.GetDuration("ZARINPAL_TIMEOUT"),
		},
		Payments: PaymentsConfig{
			MinPayableAmount: v.GetInt64("MIN_PAYABLE_AMOUNT"),
			PendingTTL:       v.GetDuration("PENDING_PAYMENT_TTL"),
			SweepInterval:    v.GetDuration("PAYMENT_SWEEP_INTERVAL"),
		},
		Email: EmailConfig{
			Queue:    v.GetString("EMAIL_QUEUE"),
			From:     v.GetString("EMAIL_FROM"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
		AWS: AWSConfig{
			Region:           v.GetString("AWS_REGION"),
			AssetsBucket:     v.GetString("S3_ASSETS_BUCKET"),
			PaymentsTopicArn: v.GetString("SNS_PAYMENTS_TOPIC_ARN"),
		},
		KafkaBroker:         v.GetString("KAFKA_BROKER"),
		FirebaseCredentials: v.GetString("FIREBASE_CREDENTIALS"),
	}
}

func Get() *Config {
	once.Do(func() {
		if cfg == nil {
			cfg = Load()
		}
	})
	return cfg
}

// Set replaces the active configuration. Used by tests.
func Set(c *Config) {
	cfg = c
}

func (c *Config) IsLocal() bool {
	return c.APIEnv == "local"
}

func (c *Config) IsProd() bool {
	return c.APIEnv == "production"
}

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	if DATABASE_SSLMODE == "" {
		DATABASE_SSLMODE = "disable"
	}
	if DATABASE_TIMEZONE == "" {
		DATABASE_TIMEZONE = "Asia/Tehran"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}
