/*
 * @module service/config/settings
 * @description 服务配置，按 默认值 -> YAML配置文件 -> 环境变量 的顺序加载
 * @architecture 分层架构 - 配置层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 默认值 -> CONFIG_FILE 覆盖 -> 环境变量覆盖 -> 校验
 * @rules 环境变量优先级最高；配置在启动时加载一次，运行期不可变
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/init.go, main.go
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"datacontract-service/service/models"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// 批量事件通知方式
const (
	EventSinkNone  = "none"
	EventSinkKafka = "kafka"
	EventSinkMQTT  = "mqtt"
)

// Settings 服务配置
type Settings struct {
	ProjectName string   `yaml:"project_name"`
	Version     string   `yaml:"version"`
	Env         string   `yaml:"env"`
	Debug       bool     `yaml:"debug"`
	LogLevel    string   `yaml:"log_level"`
	ListenPort  int      `yaml:"listen_port"`
	BaseContext string   `yaml:"base_context"`
	APIV1Prefix string   `yaml:"api_v1_prefix"`
	CORSOrigins []string `yaml:"cors_origins"`

	DatabaseURL string `yaml:"database_url"`
	DBDriver    string `yaml:"db_driver"`
	DBHost      string `yaml:"db_host"`
	DBPort      string `yaml:"db_port"`
	DBUser      string `yaml:"db_user"`
	DBPassword  string `yaml:"db_password"`
	DBName      string `yaml:"db_name"`
	DBSSLMode   string `yaml:"db_sslmode"`

	ContractsDir      string `yaml:"contracts_dir"`
	IngestDir         string `yaml:"ingest_dir"`
	ValidationWorkers int    `yaml:"validation_workers"`
	BatchChunkSize    int    `yaml:"batch_chunk_size"`
	MaxBatchSize      int    `yaml:"max_batch_size"`
	MetricsCron       string `yaml:"metrics_cron"`

	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	EventSink    string   `yaml:"event_sink"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	MQTTBroker   string   `yaml:"mqtt_broker"`
	MQTTClientID string   `yaml:"mqtt_client_id"`
	MQTTTopic    string   `yaml:"mqtt_topic"`
	MQTTQoS      int      `yaml:"mqtt_qos"`
}

// Default 默认配置
func Default() *Settings {
	return &Settings{
		ProjectName: "datacontract-service",
		Version:     "1.0.0",
		Env:         EnvDevelopment,
		LogLevel:    "info",
		ListenPort:  80,
		APIV1Prefix: "/api/v1",
		CORSOrigins: []string{"*"},

		DBDriver:   "postgres",
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "postgres",
		DBPassword: "postgres",
		DBName:     "postgres",
		DBSSLMode:  "disable",

		IngestDir:      ".",
		BatchChunkSize: 1000,
		MaxBatchSize:   10000,
		MetricsCron:    "0 5 0 * * *",

		RedisPort: "6379",

		EventSink:    EventSinkNone,
		KafkaTopic:   "datacontract.batch.completed",
		MQTTClientID: "datacontract-service",
		MQTTTopic:    "datacontract/batches",
		MQTTQoS:      1,
	}
}

// Load 加载配置：CONFIG_FILE 指定的YAML文件（可选）覆盖默认值，环境变量覆盖文件
func Load() (*Settings, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Settings, error) {
	s := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(content, s); err != nil {
			return nil, &models.ConfigurationError{Scope: "config", Reason: fmt.Sprintf("配置文件格式错误: %v", err)}
		}
	}

	o := overlay{lookup: lookup}
	o.str(&s.ProjectName, "PROJECT_NAME")
	o.str(&s.Version, "VERSION")
	o.str(&s.Env, "ENV")
	o.boolean(&s.Debug, "DEBUG")
	o.str(&s.LogLevel, "LOG_LEVEL")
	o.integer(&s.ListenPort, "LISTEN_PORT")
	o.str(&s.BaseContext, "BASE_CONTEXT")
	o.str(&s.APIV1Prefix, "API_V1_PREFIX")
	o.list(&s.CORSOrigins, "CORS_ORIGINS")

	o.str(&s.DatabaseURL, "DATABASE_URL")
	o.str(&s.DBDriver, "DB_DRIVER")
	o.str(&s.DBHost, "DB_HOST")
	o.str(&s.DBPort, "DB_PORT")
	o.str(&s.DBUser, "DB_USER")
	o.str(&s.DBPassword, "DB_PASSWORD")
	o.str(&s.DBName, "DB_NAME")
	o.str(&s.DBSSLMode, "DB_SSLMODE")

	o.str(&s.ContractsDir, "CONTRACTS_DIR")
	o.str(&s.IngestDir, "INGEST_DIR")
	o.integer(&s.ValidationWorkers, "VALIDATION_WORKERS")
	o.integer(&s.BatchChunkSize, "BATCH_CHUNK_SIZE")
	o.integer(&s.MaxBatchSize, "MAX_BATCH_SIZE")
	o.str(&s.MetricsCron, "METRICS_CRON")

	o.str(&s.RedisHost, "REDIS_HOST")
	o.str(&s.RedisPort, "REDIS_PORT")
	o.str(&s.RedisPassword, "REDIS_PASSWORD")
	o.integer(&s.RedisDB, "REDIS_DB")

	o.str(&s.EventSink, "EVENT_SINK")
	o.list(&s.KafkaBrokers, "KAFKA_BROKERS")
	o.str(&s.KafkaTopic, "KAFKA_TOPIC")
	o.str(&s.MQTTBroker, "MQTT_BROKER")
	o.str(&s.MQTTClientID, "MQTT_CLIENT_ID")
	o.str(&s.MQTTTopic, "MQTT_TOPIC")
	o.integer(&s.MQTTQoS, "MQTT_QOS")

	if o.err != nil {
		return nil, o.err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// overlay 环境变量覆盖，记录第一个转换错误
type overlay struct {
	lookup func(string) (string, bool)
	err    error
}

func (o *overlay) value(key string) (string, bool) {
	v, ok := o.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (o *overlay) fail(key, raw string, err error) {
	if o.err == nil {
		o.err = &models.ConfigurationError{Scope: "config", Reason: fmt.Sprintf("%s=%q 无效: %v", key, raw, err)}
	}
}

func (o *overlay) str(dst *string, key string) {
	if v, ok := o.value(key); ok {
		*dst = v
	}
}

func (o *overlay) integer(dst *int, key string) {
	if v, ok := o.value(key); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (o *overlay) boolean(dst *bool, key string) {
	if v, ok := o.value(key); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			o.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (o *overlay) list(dst *[]string, key string) {
	if v, ok := o.value(key); ok {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}

// Validate 校验配置取值
func (s *Settings) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return &models.ConfigurationError{Scope: "config", Reason: fmt.Sprintf(format, args...)}
	}

	switch s.DBDriver {
	case "postgres", "sqlite":
	default:
		return invalid("不支持的数据库驱动: %s", s.DBDriver)
	}
	switch s.EventSink {
	case EventSinkNone, EventSinkKafka, EventSinkMQTT:
	default:
		return invalid("不支持的事件通知方式: %s", s.EventSink)
	}
	if s.ListenPort <= 0 || s.ListenPort > 65535 {
		return invalid("端口超出范围: %d", s.ListenPort)
	}
	if s.ValidationWorkers < 0 {
		return invalid("VALIDATION_WORKERS 不能为负数")
	}
	if s.BatchChunkSize <= 0 {
		return invalid("BATCH_CHUNK_SIZE 必须大于0")
	}
	if s.MaxBatchSize <= 0 {
		return invalid("MAX_BATCH_SIZE 必须大于0")
	}
	if s.MQTTQoS < 0 || s.MQTTQoS > 2 {
		return invalid("MQTT_QOS 必须在0到2之间")
	}
	if !strings.HasPrefix(s.APIV1Prefix, "/") {
		return invalid("API_V1_PREFIX 必须以/开头")
	}
	return nil
}

// DSN 数据库连接串，优先使用 DATABASE_URL
func (s *Settings) DSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	if s.DBDriver == "sqlite" {
		return s.DBName + ".db"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName, s.DBSSLMode)
}

// IsDevelopment 是否开发环境
func (s *Settings) IsDevelopment() bool {
	return strings.EqualFold(s.Env, EnvDevelopment)
}

// IsProduction 是否生产环境
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Env, EnvProduction)
}

// RedisEnabled 是否配置了Redis，未配置时使用进程内锁
func (s *Settings) RedisEnabled() bool {
	return s.RedisHost != ""
}
