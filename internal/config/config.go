package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret         string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion   string
	SNSTopicARN string // empty disables push fan-out

	RedisAddr     string // empty keeps real-time delivery in-process
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string

	PageDefaultLimit int
	PageMaxLimit     int

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	RecoveryCodeTTL time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Projects      string
	Teams         string
	Tasks         string
	Messages      string
	Notifications string
	Outbox        string
	RecoveryCodes string
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		AppPort:        v.GetString("APP_PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		AWSRegion:      v.GetString("AWS_REGION"),
		AWSEndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		DynamoTables: DynamoTables{
			Users:         v.GetString("DYNAMO_TABLE_USERS"),
			Projects:      v.GetString("DYNAMO_TABLE_PROJECTS"),
			Teams:         v.GetString("DYNAMO_TABLE_TEAMS"),
			Tasks:         v.GetString("DYNAMO_TABLE_TASKS"),
			Messages:      v.GetString("DYNAMO_TABLE_MESSAGES"),
			Notifications: v.GetString("DYNAMO_TABLE_NOTIFICATIONS"),
			Outbox:        v.GetString("DYNAMO_TABLE_OUTBOX"),
			RecoveryCodes: v.GetString("DYNAMO_TABLE_RECOVERY_CODES"),
		},
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTPrivateKeyPath:  v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:   v.GetString("JWT_PUBLIC_KEY_PATH"),
		JWTExpiry:          v.GetDuration("JWT_EXPIRY"),
		SMTPHost:           v.GetString("SMTP_HOST"),
		SMTPPort:           v.GetInt("SMTP_PORT"),
		SMTPFrom:           v.GetString("SMTP_FROM"),
		SMTPUsername:       v.GetString("SMTP_USERNAME"),
		SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		SNSRegion:          v.GetString("SNS_REGION"),
		SNSTopicARN:        v.GetString("SNS_TOPIC_ARN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		PageDefaultLimit:   v.GetInt("PAGINATION_DEFAULT_LIMIT"),
		PageMaxLimit:       v.GetInt("PAGINATION_MAX_LIMIT"),
		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		OutboxMaxAttempts:  v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		RecoveryCodeTTL:    v.GetDuration("RECOVERY_CODE_TTL"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DYNAMO_TABLE_USERS", "users")
	v.SetDefault("DYNAMO_TABLE_PROJECTS", "projects")
	v.SetDefault("DYNAMO_TABLE_TEAMS", "teams")
	v.SetDefault("DYNAMO_TABLE_TASKS", "tasks")
	v.SetDefault("DYNAMO_TABLE_MESSAGES", "messages")
	v.SetDefault("DYNAMO_TABLE_NOTIFICATIONS", "notifications")
	v.SetDefault("DYNAMO_TABLE_OUTBOX", "outbox")
	v.SetDefault("DYNAMO_TABLE_RECOVERY_CODES", "recovery_codes")
	v.SetDefault("JWT_PRIVATE_KEY_PATH", "./private_key.pem")
	v.SetDefault("JWT_PUBLIC_KEY_PATH", "./public_key.pem")
	v.SetDefault("JWT_EXPIRY", "720h")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_FROM", "noreply@example.com")
	v.SetDefault("SNS_REGION", "us-east-1")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("PAGINATION_DEFAULT_LIMIT", 10)
	v.SetDefault("PAGINATION_MAX_LIMIT", 100)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "1s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 25)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)
	v.SetDefault("RECOVERY_CODE_TTL", "15m")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
