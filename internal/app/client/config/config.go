package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".clinicsync"

	// 7 дней
	defaultMaxOfflineTimeMs = 604800000
	defaultMaxSyncRetries   = 5
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	EnableTLS     bool   `mapstructure:"enable_tls"`

	// MetricsAddress включает /metrics в режиме run, пусто = выключено
	MetricsAddress string `mapstructure:"metrics_address"`

	MaxOfflineTime       time.Duration `mapstructure:"-"`
	MaxSyncRetries       int           `mapstructure:"max_sync_retries"`
	SyncInterval         time.Duration `mapstructure:"sync_interval"`
	OfflineCheckInterval time.Duration `mapstructure:"offline_check_interval"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
	ProbeInterval        time.Duration `mapstructure:"probe_interval"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает yaml-файл (если есть), .env, переменные окружения и значения
// по умолчанию. Переменные окружения важнее файла.
func Load(configFile string) (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, defaultConfigDir))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("MAX_OFFLINE_TIME", defaultMaxOfflineTimeMs)
	v.SetDefault("MAX_SYNC_RETRIES", defaultMaxSyncRetries)
	v.SetDefault("SYNC_INTERVAL", 30*time.Second)
	v.SetDefault("OFFLINE_CHECK_INTERVAL", 60*time.Second)
	v.SetDefault("HEARTBEAT_INTERVAL", 5*time.Minute)
	v.SetDefault("PROBE_INTERVAL", 10*time.Second)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
}

func fromViper(v *viper.Viper) (*Config, error) {
	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "clinic.db")
	}

	cfg := &Config{
		Env:                  v.GetString("APP_ENV"),
		ServerAddress:        v.GetString("SERVER_ADDRESS"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		ConfigDir:            configDir,
		DataPath:             dataPath,
		EnableTLS:            v.GetBool("ENABLE_TLS"),
		MetricsAddress:       v.GetString("METRICS_ADDRESS"),
		MaxOfflineTime:       time.Duration(v.GetInt64("MAX_OFFLINE_TIME")) * time.Millisecond,
		MaxSyncRetries:       v.GetInt("MAX_SYNC_RETRIES"),
		SyncInterval:         v.GetDuration("SYNC_INTERVAL"),
		OfflineCheckInterval: v.GetDuration("OFFLINE_CHECK_INTERVAL"),
		HeartbeatInterval:    v.GetDuration("HEARTBEAT_INTERVAL"),
		ProbeInterval:        v.GetDuration("PROBE_INTERVAL"),
		RequestTimeout:       v.GetDuration("REQUEST_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.MaxOfflineTime <= 0 {
		return fmt.Errorf("max_offline_time должен быть положительным")
	}
	if c.MaxSyncRetries < 1 {
		return fmt.Errorf("max_sync_retries должен быть не меньше 1")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval должен быть положительным")
	}
	return nil
}

// BaseURL возвращает адрес API с учетом TLS
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.EnableTLS {
		scheme = "https"
	}
	return scheme + "://" + c.ServerAddress
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
