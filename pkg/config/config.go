package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Telegram      TelegramConfig
	Uploads       UploadsConfig
	Orders        OrdersConfig
	Subjects      SubjectsConfig
	Notifications NotificationsConfig
	Bot           BotConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TelegramConfig holds the bot token and the chat targets notifications go to.
type TelegramConfig struct {
	BotToken             string
	AdminChatID          string
	ExtraAdminChatIDs    []string
	SpecialSubjectName   string
	SpecialSubjectChatID string
	WebAppURL            string
	SupportContact       string
}

// UploadsConfig controls deliverable file storage and validation.
type UploadsConfig struct {
	Dir                string
	MaxFileSizeBytes   int64
	AllowedExtensions  []string
	RecompleteOnAttach bool
}

// OrdersConfig tunes order workflow behaviour.
type OrdersConfig struct {
	DedupWindow       time.Duration
	CustomSubjectName string
}

// SubjectsConfig governs subject catalog caching.
type SubjectsConfig struct {
	CacheTTL time.Duration
}

// NotificationsConfig configures the asynchronous delivery queue.
type NotificationsConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	SendTimeout time.Duration
}

// BotConfig configures the companion Telegram bot process.
type BotConfig struct {
	APIBaseURL  string
	PollTimeout int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:             v.GetString("TELEGRAM_BOT_TOKEN"),
		AdminChatID:          v.GetString("TELEGRAM_CHAT_ID"),
		ExtraAdminChatIDs:    splitAndTrim(v.GetString("TELEGRAM_EXTRA_CHAT_IDS")),
		SpecialSubjectName:   v.GetString("SPECIAL_SUBJECT_NAME"),
		SpecialSubjectChatID: v.GetString("SPECIAL_SUBJECT_CHAT_ID"),
		WebAppURL:            v.GetString("WEBAPP_URL"),
		SupportContact:       v.GetString("SUPPORT_CONTACT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 100 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:                v.GetString("UPLOADS_DIR"),
		MaxFileSizeBytes:   maxUploadSize,
		AllowedExtensions:  splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTENSIONS")),
		RecompleteOnAttach: v.GetBool("UPLOADS_RECOMPLETE_ON_ATTACH"),
	}

	cfg.Orders = OrdersConfig{
		DedupWindow:       parseDuration(v.GetString("ORDERS_DEDUP_WINDOW"), 2*time.Minute),
		CustomSubjectName: v.GetString("ORDERS_CUSTOM_SUBJECT_NAME"),
	}

	cfg.Subjects = SubjectsConfig{
		CacheTTL: parseDuration(v.GetString("SUBJECTS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:     v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize:  v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries:  v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 5*time.Second),
		SendTimeout: parseDuration(v.GetString("NOTIFICATIONS_SEND_TIMEOUT"), 10*time.Second),
	}

	cfg.Bot = BotConfig{
		APIBaseURL:  v.GetString("BOT_API_BASE_URL"),
		PollTimeout: v.GetInt("BOT_POLL_TIMEOUT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_orders")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_CHAT_ID", "")
	v.SetDefault("TELEGRAM_EXTRA_CHAT_IDS", "")
	v.SetDefault("SPECIAL_SUBJECT_NAME", "")
	v.SetDefault("SPECIAL_SUBJECT_CHAT_ID", "")
	v.SetDefault("WEBAPP_URL", "https://bbifather.ru")
	v.SetDefault("SUPPORT_CONTACT", "@bbifather_support")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 100*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_EXTENSIONS", "")
	v.SetDefault("UPLOADS_RECOMPLETE_ON_ATTACH", true)

	v.SetDefault("ORDERS_DEDUP_WINDOW", "2m")
	v.SetDefault("ORDERS_CUSTOM_SUBJECT_NAME", "Другой предмет")

	v.SetDefault("SUBJECTS_CACHE_TTL", "10m")

	v.SetDefault("NOTIFICATIONS_WORKERS", 1)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "5s")
	v.SetDefault("NOTIFICATIONS_SEND_TIMEOUT", "10s")

	v.SetDefault("BOT_API_BASE_URL", "http://localhost:8000")
	v.SetDefault("BOT_POLL_TIMEOUT", 30)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
