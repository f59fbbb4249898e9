package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Port     string `env:"PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

type TelegramConfig struct {
	Token   string        `env:"TELEGRAM_TOKEN"`
	ChatID  int64         `env:"CHAT_ID"`
	Timeout time.Duration `env:"TELEGRAM_TIMEOUT" env-default:"10s"`
}

type MongoConfig struct {
	URL     string        `env:"MONGO_URL"`
	DB      string        `env:"MONGO_DB" env-default:"logistics"`
	Timeout time.Duration `env:"MONGO_TIMEOUT" env-default:"10s"`

	TimeCollection         string `env:"MONGO_TIME_COLLECTION" env-default:"alex.time"`
	HooksCollection        string `env:"MONGO_HOOKS_COLLECTION" env-default:"actor_hooks"`
	HabitsCollection       string `env:"MONGO_HABITS_COLLECTION" env-default:"alex.habits"`
	HabitPunchesCollection string `env:"MONGO_HABIT_PUNCHES_COLLECTION" env-default:"alex.habitspunch2"`
	HabitAnchorsCollection string `env:"MONGO_HABIT_ANCHORS_COLLECTION" env-default:"alex.habits_anchors"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DB       string `env:"POSTGRES_DB" env-default:"actor_relay"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT" env-default:"3s"`
	TokenTTL time.Duration `env:"IDENTITY_TOKEN_TTL" env-default:"50m"`
}

type IdentityConfig struct {
	MetadataURL string        `env:"METADATA_IDENTITY_URL" env-default:"http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/identity"`
	Timeout     time.Duration `env:"METADATA_TIMEOUT" env-default:"5s"`
}

const (
	HooksBackendMongo    = "mongo"
	HooksBackendPostgres = "postgres"
)

// DispatcherConfig configures the Telegram webhook that routes updates to actor services.
type DispatcherConfig struct {
	HTTP           HTTPConfig
	Telegram       TelegramConfig
	Mongo          MongoConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Identity       IdentityConfig
	HooksBackend   string        `env:"HOOKS_BACKEND" env-default:"mongo"`
	ForwardTimeout time.Duration `env:"FORWARD_TIMEOUT" env-default:"10s"`
}

type ActorConfig struct {
	HTTP       HTTPConfig
	Telegram   TelegramConfig
	Pyas2Token string `env:"PYAS2_TELEGRAM_TOKEN"`
}

type HeartbeatConfig struct {
	HTTP     HTTPConfig
	Telegram TelegramConfig
	Mongo    MongoConfig
	Prompt   string `env:"HEARTBEAT_PROMPT" env-default:"北鼻，你在幹什麼？"`
}

type HabitsConfig struct {
	HTTP     HTTPConfig
	Telegram TelegramConfig
	Mongo    MongoConfig
	TimeZone string `env:"HABITS_TIMEZONE" env-default:"America/New_York"`
}

type ChatConfig struct {
	HTTP            HTTPConfig
	Telegram        TelegramConfig
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash-latest"`
	GenerateTimeout time.Duration `env:"GEMINI_TIMEOUT" env-default:"30s"`
	AllowedChatID   int64         `env:"SHOULD_BE_CHAT_ID"`
}

func LoadConfig(cfg interface{}) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func MustLoadConfig(cfg interface{}) {
	if err := LoadConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}
