package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Границы, проверяемые до первого цикла
const (
	MinProbeAttempts  = 1
	MaxProbeAttempts  = 20
	MinProbeTimeout   = 100 * time.Millisecond
	MaxProbeTimeout   = 60 * time.Second
	MinCheckInterval  = 30 * time.Second
	MaxCheckInterval  = 3600 * time.Second
	defaultTargetURL  = "https://httpbin.org/delay/1"
	defaultLogLevel   = "info"
	defaultServerPort = "8080"
)

type Config struct {
	LogLevel     string
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	Monitor      MonitorConfig
	Thresholds   ThresholdsConfig
	Notification NotificationConfig
	CloudWatch   CloudWatchConfig
	S3           S3Config
	Dynamo       DynamoConfig
	Security     SecurityConfig
	Metrics      MetricsConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RetentionDays   int
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

// MonitorConfig описывает параметры цикла мониторинга
type MonitorConfig struct {
	Hostname            string
	TargetURL           string
	ProbeAttempts       int
	ProbeTimeout        time.Duration
	DomainTimeout       time.Duration
	CheckInterval       time.Duration
	MinInterval         time.Duration
	MaxInterval         time.Duration
	EnableNotifications bool
}

// ThresholdPair пара порогов WARN/CRIT
type ThresholdPair struct {
	Warn float64 `yaml:"warn"`
	Crit float64 `yaml:"crit"`
}

// ThresholdsConfig пороги всех доменов; может быть переопределен YAML файлом
type ThresholdsConfig struct {
	Disk           ThresholdPair `yaml:"disk"`
	Memory         ThresholdPair `yaml:"memory"`
	CPU            ThresholdPair `yaml:"cpu"`
	Processes      ThresholdPair `yaml:"processes"`
	Network        ThresholdPair `yaml:"network"`
	LatencyAvg     ThresholdPair `yaml:"latency_avg"`
	LatencyP95     ThresholdPair `yaml:"latency_p95"`
	ConnectionWarn int           `yaml:"connection_warn"`
}

type NotificationConfig struct {
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	WebSocket      bool
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBufferSize    int
	LogsFlushInterval time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled         bool
	TableReports    string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	ReportTTLDays   int
}

type SecurityConfig struct {
	AllowedOrigins      []string
	AuthEnabled         bool
	AuthToken           string
	RateLimitPerMinute  int
	TriggerPerMinute    int
	WebSocketMaxClients int
}

type MetricsConfig struct {
	PrometheusEnabled bool
	Path              string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	hostname, _ := os.Hostname()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", defaultServerPort),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "sremon"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Monitor: MonitorConfig{
			Hostname:            getEnv("MONITOR_HOSTNAME", hostname),
			TargetURL:           getEnv("MONITOR_TARGET_URL", defaultTargetURL),
			EnableNotifications: getEnvBool("MONITOR_ENABLE_NOTIFICATIONS", true),
			MinInterval:         MinCheckInterval,
			MaxInterval:         MaxCheckInterval,
		},
		Thresholds: DefaultThresholds(),
		Notification: NotificationConfig{
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
			WebSocket:     getEnvBool("NOTIFY_WEBSOCKET", true),
		},
		CloudWatch: CloudWatchConfig{
			Region:            getEnv("AWS_REGION", "us-east-1"),
			Endpoint:          getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:    getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:  getEnv("CLOUDWATCH_METRICS_NAMESPACE", "SREMonitor"),
			MetricsDimensions: map[string]string{"Host": getEnv("MONITOR_HOSTNAME", hostname)},
			LogsEnabled:       getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:      getEnv("CLOUDWATCH_LOG_GROUP", "/sremon/app"),
			LogStreamName:     getEnv("CLOUDWATCH_LOG_STREAM", hostname),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
		},
		Dynamo: DynamoConfig{
			Enabled:         getEnvBool("DYNAMO_ENABLED", false),
			TableReports:    getEnv("DYNAMO_TABLE_REPORTS", "sremon_reports"),
			Region:          getEnv("DYNAMO_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("DYNAMO_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("DYNAMO_SECRET_ACCESS_KEY", ""),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", false),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
		Metrics: MetricsConfig{
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
			Path:              getEnv("PROMETHEUS_PATH", "/metrics"),
		},
	}

	var err error
	ints := []struct {
		key    string
		def    string
		target *int
	}{
		{"MONITOR_PROBE_ATTEMPTS", "5", &cfg.Monitor.ProbeAttempts},
		{"DB_RETENTION_DAYS", "30", &cfg.Database.RetentionDays},
		{"REDIS_DB", "0", &cfg.Redis.DB},
		{"NOTIFY_MAX_RETRIES", "3", &cfg.Notification.MaxRetries},
		{"CLOUDWATCH_METRICS_BUFFER_SIZE", "20", &cfg.CloudWatch.MetricsBufferSize},
		{"CLOUDWATCH_LOGS_BUFFER_SIZE", "50", &cfg.CloudWatch.LogsBufferSize},
		{"DYNAMO_REPORT_TTL_DAYS", "30", &cfg.Dynamo.ReportTTLDays},
		{"RATE_LIMIT_PER_MINUTE", "120", &cfg.Security.RateLimitPerMinute},
		{"TRIGGER_RATE_LIMIT_PER_MINUTE", "6", &cfg.Security.TriggerPerMinute},
		{"WS_MAX_CLIENTS", "100", &cfg.Security.WebSocketMaxClients},
	}
	for _, item := range ints {
		if *item.target, err = strconv.Atoi(getEnv(item.key, item.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", item.key, err)
		}
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"MONITOR_PROBE_TIMEOUT", "10s", &cfg.Monitor.ProbeTimeout},
		{"MONITOR_DOMAIN_TIMEOUT", "15s", &cfg.Monitor.DomainTimeout},
		{"MONITOR_CHECK_INTERVAL", "300s", &cfg.Monitor.CheckInterval},
		{"REDIS_TTL", "10m", &cfg.Redis.TTL},
		{"NOTIFY_WEBHOOK_TIMEOUT", "10s", &cfg.Notification.WebhookTimeout},
		{"NOTIFY_RETRY_BACKOFF", "500ms", &cfg.Notification.RetryBackoff},
		{"CLOUDWATCH_METRICS_FLUSH_INTERVAL", "60s", &cfg.CloudWatch.MetricsFlushInterval},
		{"CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s", &cfg.CloudWatch.LogsFlushInterval},
		{"S3_PRESIGNED_TTL", "15m", &cfg.S3.PresignedTTL},
	}
	for _, item := range durations {
		if *item.target, err = parseDuration(getEnv(item.key, item.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", item.key, err)
		}
	}

	resolution, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_STORAGE_RESOLUTION: %w", err)
	}
	cfg.CloudWatch.MetricsStorageResolution = int32(resolution)

	if path := getEnv("THRESHOLDS_FILE", ""); path != "" {
		if err := cfg.Thresholds.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Thresholds.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		Disk:       ThresholdPair{Warn: 80, Crit: 90},
		Memory:     ThresholdPair{Warn: 85, Crit: 95},
		CPU:        ThresholdPair{Warn: 80, Crit: 95},
		Processes:  ThresholdPair{Warn: 200, Crit: 500},
		Network:    ThresholdPair{Warn: 10, Crit: 100},
		LatencyAvg: ThresholdPair{Warn: 1000, Crit: 5000},
		LatencyP95: ThresholdPair{Warn: 5000, Crit: 10000},
	}
}

// LoadFile переопределяет пороги значениями из YAML файла.
// Отсутствующие в файле поля сохраняют текущие значения.
func (t *ThresholdsConfig) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read thresholds file: %w", err)
	}

	if err := yaml.Unmarshal(raw, t); err != nil {
		return fmt.Errorf("invalid thresholds file %s: %w", path, err)
	}

	return nil
}

func (t *ThresholdsConfig) applyEnv() error {
	pairs := map[string]*ThresholdPair{
		"DISK":        &t.Disk,
		"MEMORY":      &t.Memory,
		"CPU":         &t.CPU,
		"PROCESSES":   &t.Processes,
		"NETWORK":     &t.Network,
		"LATENCY_AVG": &t.LatencyAvg,
		"LATENCY_P95": &t.LatencyP95,
	}

	for name, pair := range pairs {
		for suffix, target := range map[string]*float64{"WARN": &pair.Warn, "CRIT": &pair.Crit} {
			key := "THRESHOLD_" + name + "_" + suffix
			raw := os.Getenv(key)
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*target = value
		}
	}

	if raw := os.Getenv("NETWORK_CONNECTION_WARN"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid NETWORK_CONNECTION_WARN: %w", err)
		}
		t.ConnectionWarn = value
	}

	return nil
}

// Validate проверяет диапазоны конфигурации до запуска первого цикла
func (c *Config) Validate() error {
	m := c.Monitor

	target, err := url.Parse(m.TargetURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return fmt.Errorf("invalid MONITOR_TARGET_URL: %q", m.TargetURL)
	}
	if m.ProbeAttempts < MinProbeAttempts || m.ProbeAttempts > MaxProbeAttempts {
		return fmt.Errorf("MONITOR_PROBE_ATTEMPTS must be between %d and %d, got %d",
			MinProbeAttempts, MaxProbeAttempts, m.ProbeAttempts)
	}
	if m.ProbeTimeout < MinProbeTimeout || m.ProbeTimeout > MaxProbeTimeout {
		return fmt.Errorf("MONITOR_PROBE_TIMEOUT must be between %s and %s, got %s",
			MinProbeTimeout, MaxProbeTimeout, m.ProbeTimeout)
	}
	if m.MinInterval < MinCheckInterval || m.MaxInterval > MaxCheckInterval || m.MinInterval > m.MaxInterval {
		return fmt.Errorf("check interval bounds must lie within %s..%s, got %s..%s",
			MinCheckInterval, MaxCheckInterval, m.MinInterval, m.MaxInterval)
	}
	if m.CheckInterval < m.MinInterval || m.CheckInterval > m.MaxInterval {
		return fmt.Errorf("MONITOR_CHECK_INTERVAL must be between %s and %s, got %s",
			m.MinInterval, m.MaxInterval, m.CheckInterval)
	}
	if m.DomainTimeout <= 0 {
		return fmt.Errorf("MONITOR_DOMAIN_TIMEOUT must be positive")
	}

	if err := c.Thresholds.Validate(); err != nil {
		return err
	}

	if c.Notification.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Notification.WebhookURL); err != nil {
			return fmt.Errorf("invalid NOTIFY_WEBHOOK_URL: %w", err)
		}
	}

	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return nil
}

// Validate проверяет, что warn <= crit и значения неотрицательные
func (t ThresholdsConfig) Validate() error {
	pairs := []struct {
		name string
		pair ThresholdPair
	}{
		{"disk", t.Disk},
		{"memory", t.Memory},
		{"cpu", t.CPU},
		{"processes", t.Processes},
		{"network", t.Network},
		{"latency_avg", t.LatencyAvg},
		{"latency_p95", t.LatencyP95},
	}

	for _, p := range pairs {
		if p.pair.Warn < 0 || p.pair.Crit < 0 {
			return fmt.Errorf("invalid %s threshold: values cannot be negative", p.name)
		}
		if p.pair.Warn > p.pair.Crit {
			return fmt.Errorf("invalid %s threshold: warn %.2f exceeds crit %.2f", p.name, p.pair.Warn, p.pair.Crit)
		}
	}

	if t.ConnectionWarn < 0 {
		return fmt.Errorf("invalid connection_warn: %d", t.ConnectionWarn)
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	// Допускаем число без единиц как секунды (MONITOR_CHECK_INTERVAL=300)
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(s)
}
