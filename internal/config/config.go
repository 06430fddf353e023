package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	LLM        LLMConfig
	LiveAvatar LiveAvatarConfig `mapstructure:"liveavatar"`
	Storage    StorageConfig
	Practice   PracticeConfig
	Telemetry  TelemetryConfig
	Scheduler  SchedulerConfig
	Log        LogConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// AuthConfig содержит настройки проверки токенов внешнего провайдера аутентификации
type AuthConfig struct {
	// JWTSecret - общий секрет HS256, которым провайдер подписывает access-токены
	JWTSecret string `mapstructure:"jwt_secret"`
	// Audience - ожидаемое значение aud (пусто - не проверяется)
	Audience string `mapstructure:"audience"`
	Issuer   string `mapstructure:"issuer"`
}

// LLMConfig содержит настройки OpenAI-совместимого API
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

// LiveAvatarConfig содержит настройки провайдера живого аватара
type LiveAvatarConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	AvatarID string        `mapstructure:"avatar_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig содержит настройки объектного хранилища (GCS)
type StorageConfig struct {
	// EmulatorHost - адрес fake-gcs-server для локальной разработки
	EmulatorHost  string `mapstructure:"emulator_host"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	// CredentialsFile - путь к JSON сервисного аккаунта (пусто - ADC)
	CredentialsFile string            `mapstructure:"credentials_file"`
	Buckets         map[string]string `mapstructure:"buckets"`
	MaxUploadMB     int64             `mapstructure:"max_upload_mb"`
}

// PracticeConfig содержит настройки движка практики
type PracticeConfig struct {
	ContextBudget     int           `mapstructure:"context_budget"`
	ContextCacheTTL   time.Duration `mapstructure:"context_cache_ttl"`
	StartRateLimit    int           `mapstructure:"start_rate_limit"`
	StartRateWindow   time.Duration `mapstructure:"start_rate_window"`
	MockExamQuestions int           `mapstructure:"mock_exam_questions"`
}

// TelemetryConfig содержит настройки OpenTelemetry
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// SchedulerConfig содержит расписания фоновых задач (cron-выражения)
type SchedulerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	SessionSweepSpec string        `mapstructure:"session_sweep_spec"`
	AbandonedAfter   time.Duration `mapstructure:"abandoned_after"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Bucket возвращает имя бакета по логической категории (notes, extras, ...).
// Если категория не задана в конфиге, используется само имя категории.
func (s *StorageConfig) Bucket(category string) string {
	if name, ok := s.Buckets[category]; ok && name != "" {
		return name
	}
	return category
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 60)
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("llm.base_url", "https://api.openai.com/v1")
	vip.SetDefault("llm.model", "gpt-4o-mini")
	vip.SetDefault("llm.timeout", 60*time.Second)
	vip.SetDefault("llm.temperature", 0.7)
	vip.SetDefault("liveavatar.timeout", 15*time.Second)
	vip.SetDefault("storage.max_upload_mb", 50)
	vip.SetDefault("practice.context_budget", 8000)
	vip.SetDefault("practice.context_cache_ttl", 24*time.Hour)
	vip.SetDefault("practice.start_rate_limit", 10)
	vip.SetDefault("practice.start_rate_window", time.Minute)
	vip.SetDefault("practice.mock_exam_questions", 20)
	vip.SetDefault("telemetry.service_name", "studyhub-api")
	vip.SetDefault("telemetry.sample_ratio", 0.1)
	vip.SetDefault("scheduler.enabled", true)
	vip.SetDefault("scheduler.session_sweep_spec", "@hourly")
	vip.SetDefault("scheduler.abandoned_after", 24*time.Hour)
	vip.SetDefault("log.mode", "development")
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.audience", "AUTH_AUDIENCE")
	vip.BindEnv("auth.issuer", "AUTH_ISSUER")

	vip.BindEnv("llm.base_url", "LLM_BASE_URL")
	vip.BindEnv("llm.api_key", "LLM_API_KEY")
	vip.BindEnv("llm.model", "LLM_MODEL")

	vip.BindEnv("liveavatar.base_url", "LIVEAVATAR_BASE_URL")
	vip.BindEnv("liveavatar.api_key", "LIVEAVATAR_API_KEY")
	vip.BindEnv("liveavatar.avatar_id", "LIVEAVATAR_AVATAR_ID")

	vip.BindEnv("storage.emulator_host", "STORAGE_EMULATOR_HOST")
	vip.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	vip.BindEnv("storage.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")

	vip.BindEnv("telemetry.enabled", "OTEL_ENABLED")
	vip.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	vip.BindEnv("telemetry.environment", "APP_ENV")

	vip.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	vip.BindEnv("log.mode", "LOG_MODE")
	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл не обязателен: все ключи можно задать через окружение
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required (check AUTH_JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Practice.ContextBudget <= 0 {
		return fmt.Errorf("practice.context_budget must be positive, got %d", c.Practice.ContextBudget)
	}
	if c.Practice.MockExamQuestions < 1 || c.Practice.MockExamQuestions > 20 {
		return fmt.Errorf("practice.mock_exam_questions must be within 1..20, got %d", c.Practice.MockExamQuestions)
	}
	if c.LLM.APIKey == "" {
		log.Println("Warning: LLM_API_KEY не задан, генерация вопросов будет недоступна.")
	}
	return nil
}
